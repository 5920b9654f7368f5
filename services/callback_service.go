package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CallbackAck is the envelope returned to the provider for every notification.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var ackReceived = CallbackAck{ResultCode: 0, ResultDesc: "Callback received successfully"}

// TopUpEvent describes a committed top-up. Listeners run after the transaction.
type TopUpEvent struct {
	User           models.User
	Payment        models.MpesaPayment
	Rental         models.Rental
	Balance        decimal.Decimal
	ReferrerID     *uuid.UUID
	ReferralReward decimal.Decimal
	ReferrerBal    decimal.Decimal
}

type CallbackService struct {
	db        *gorm.DB
	wallet    *WalletService
	payments  *PaymentService
	rentals   *RentalService
	referrals *ReferralService
	log       *zap.Logger
	listeners []func(TopUpEvent)
}

func NewCallbackService(db *gorm.DB, wallet *WalletService, payments *PaymentService, rentals *RentalService, referrals *ReferralService, log *zap.Logger) *CallbackService {
	return &CallbackService{db: db, wallet: wallet, payments: payments, rentals: rentals, referrals: referrals, log: log}
}

// OnTopUp registers fn to run after each applied top-up.
func (s *CallbackService) OnTopUp(fn func(TopUpEvent)) {
	s.listeners = append(s.listeners, fn)
}

// HandleSTKCallback applies a provider notification at most once per
// CheckoutRequestID. It never returns an error: failures are logged and
// reported in the ack.
func (s *CallbackService) HandleSTKCallback(ctx context.Context, raw []byte) CallbackAck {
	result, err := payments.ParseSTKCallback(raw)
	if err != nil {
		s.log.Error("invalid STK callback payload", zap.Error(err), zap.ByteString("payload", raw))
		return CallbackAck{ResultCode: 1, ResultDesc: "Error: " + err.Error()}
	}
	if result.CheckoutRequestID == "" {
		s.log.Error("STK callback without CheckoutRequestID", zap.ByteString("payload", raw))
		return CallbackAck{ResultCode: 1, ResultDesc: "Error: missing CheckoutRequestID"}
	}

	log := s.log.With(zap.String("checkout_request_id", result.CheckoutRequestID))

	var event *TopUpEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.payments.FindByCheckoutID(tx, result.CheckoutRequestID)
		if err != nil {
			return err
		}
		if payment != nil && payment.Status == models.PaymentCompleted {
			log.Info("duplicate STK callback ignored")
			return nil
		}

		if !result.Success() {
			return s.markFailed(tx, payment, result, raw, log)
		}

		if payment != nil && !result.Amount.Equal(payment.Amount) {
			return s.markAmountMismatch(tx, payment, result, raw, log)
		}

		event, err = s.applyTopUp(tx, payment, result, raw, log)
		return err
	})
	if err != nil {
		log.Error("failed to apply STK callback", zap.Error(err))
		return CallbackAck{ResultCode: 1, ResultDesc: "Error: " + err.Error()}
	}

	if event != nil {
		log.Info("top-up applied",
			zap.String("user_id", event.User.ID.String()),
			zap.String("amount", event.Payment.Amount.StringFixed(2)),
			zap.String("balance", event.Balance.StringFixed(2)))
		for _, fn := range s.listeners {
			fn(*event)
		}
	}
	return ackReceived
}

func (s *CallbackService) markFailed(tx *gorm.DB, payment *models.MpesaPayment, result *payments.CallbackResult, raw []byte, log *zap.Logger) error {
	if payment == nil {
		log.Warn("failed STK callback for unknown payment",
			zap.Int("result_code", result.ResultCode),
			zap.String("result_desc", result.ResultDesc))
		return nil
	}

	log.Info("STK payment failed",
		zap.String("user_id", payment.UserID.String()),
		zap.Int("result_code", result.ResultCode),
		zap.String("result_desc", result.ResultDesc))
	return tx.Model(payment).Updates(map[string]interface{}{
		"status":       models.PaymentFailed,
		"result_code":  strconv.Itoa(result.ResultCode),
		"result_desc":  result.ResultDesc,
		"raw_callback": datatypes.JSON(raw),
	}).Error
}

// markAmountMismatch fails a known payment whose paid amount differs from the
// catalog price it was initiated for. Nothing is credited and no rental opens.
func (s *CallbackService) markAmountMismatch(tx *gorm.DB, payment *models.MpesaPayment, result *payments.CallbackResult, raw []byte, log *zap.Logger) error {
	log.Error("STK callback amount does not match payment",
		zap.String("user_id", payment.UserID.String()),
		zap.String("expected", payment.Amount.StringFixed(2)),
		zap.String("paid", result.Amount.StringFixed(2)),
		zap.String("receipt", result.ReceiptNumber))
	return tx.Model(payment).Updates(map[string]interface{}{
		"status":         models.PaymentFailed,
		"result_code":    strconv.Itoa(result.ResultCode),
		"result_desc":    fmt.Sprintf("Amount mismatch: paid %s, expected %s", result.Amount.StringFixed(2), payment.Amount.StringFixed(2)),
		"receipt_number": result.ReceiptNumber,
		"raw_callback":   datatypes.JSON(raw),
	}).Error
}

// applyTopUp runs inside the callback transaction. It returns a nil event when
// the paying user cannot be resolved.
func (s *CallbackService) applyTopUp(tx *gorm.DB, payment *models.MpesaPayment, result *payments.CallbackResult, raw []byte, log *zap.Logger) (*TopUpEvent, error) {
	user, err := s.resolveUser(tx, payment, result.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Warn("no user matches STK callback", zap.String("phone", result.PhoneNumber))
		return nil, nil
	}

	referrerID, err := s.activeReferrer(tx, user)
	if err != nil {
		return nil, err
	}
	lockIDs := []uuid.UUID{user.ID}
	if referrerID != nil {
		lockIDs = append(lockIDs, *referrerID)
	}
	wallets, err := s.wallet.LockWallets(tx, lockIDs...)
	if err != nil {
		return nil, err
	}

	amount := result.Amount.Round(2)
	if payment == nil {
		currency, err := s.currencyForAmount(tx, amount)
		if err != nil {
			return nil, err
		}
		payment, err = s.payments.RecordPayment(tx, user.ID, result.PhoneNumber, currency, amount, models.PaymentCompleted)
		if err != nil {
			return nil, err
		}
	}

	checkoutID := result.CheckoutRequestID
	merchantID := result.MerchantRequestID
	payment.Status = models.PaymentCompleted
	payment.Amount = amount
	payment.CheckoutRequestID = &checkoutID
	payment.MerchantRequestID = &merchantID
	payment.ResultCode = strconv.Itoa(result.ResultCode)
	payment.ResultDesc = result.ResultDesc
	payment.ReceiptNumber = result.ReceiptNumber
	payment.RawCallback = datatypes.JSON(raw)
	if err := tx.Model(payment).Updates(map[string]interface{}{
		"status":              payment.Status,
		"amount":              payment.Amount,
		"checkout_request_id": payment.CheckoutRequestID,
		"merchant_request_id": payment.MerchantRequestID,
		"result_code":         payment.ResultCode,
		"result_desc":         payment.ResultDesc,
		"receipt_number":      payment.ReceiptNumber,
		"raw_callback":        payment.RawCallback,
	}).Error; err != nil {
		return nil, err
	}

	userWallet := wallets[user.ID]
	if err := s.wallet.Credit(tx, userWallet, amount, models.ReasonTopUp, &payment.ID); err != nil {
		return nil, err
	}

	rental, err := s.rentals.OpenRental(tx, user.ID, payment.CurrencyCode, amount, &payment.ID)
	if err != nil {
		return nil, err
	}

	event := &TopUpEvent{
		User:           *user,
		Payment:        *payment,
		Rental:         *rental,
		Balance:        userWallet.Balance,
		ReferralReward: decimal.Zero,
	}

	if referrerID != nil {
		reward, err := s.referrals.ApplyReward(tx, user, amount, wallets[*referrerID])
		if err != nil {
			return nil, err
		}
		event.ReferrerID = referrerID
		event.ReferralReward = reward
		event.ReferrerBal = wallets[*referrerID].Balance
	}
	return event, nil
}

func (s *CallbackService) resolveUser(tx *gorm.DB, payment *models.MpesaPayment, phone string) (*models.User, error) {
	var user models.User
	if payment != nil {
		if err := tx.First(&user, "id = ?", payment.UserID).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	normalised, err := payments.SanitizeMpesaNumber(phone)
	if err != nil {
		return nil, nil
	}
	var matches []models.User
	if err := tx.Where("phone_number = ?", normalised).Limit(2).Find(&matches).Error; err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		s.log.Warn("STK callback phone matches several users", zap.String("phone", normalised))
		return nil, nil
	}
}

// activeReferrer returns the referrer id of user if that account still exists.
func (s *CallbackService) activeReferrer(tx *gorm.DB, user *models.User) (*uuid.UUID, error) {
	if user.ReferredByID == nil || *user.ReferredByID == user.ID {
		return nil, nil
	}
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", *user.ReferredByID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return user.ReferredByID, nil
}

// currencyForAmount picks the active product priced at amount. Unmatched
// amounts are booked in the settlement currency.
func (s *CallbackService) currencyForAmount(tx *gorm.DB, amount decimal.Decimal) (string, error) {
	var product models.CurrencyProduct
	err := tx.Where("price_kes = ? AND active = ?", amount, true).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SettlementCurrency, nil
	}
	if err != nil {
		return "", err
	}
	return product.Code, nil
}
