package services

import (
	"context"
	"errors"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/payments"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// STKPusher is the part of the M-Pesa client the top-up flow needs.
type STKPusher interface {
	STKPush(ctx context.Context, phone string, amount int64, accountRef string) (*payments.StkPushResponse, error)
}

type TopUpService struct {
	db       *gorm.DB
	payments *PaymentService
	mpesa    STKPusher
	log      *zap.Logger
}

func NewTopUpService(db *gorm.DB, payments *PaymentService, mpesa STKPusher, log *zap.Logger) *TopUpService {
	return &TopUpService{db: db, payments: payments, mpesa: mpesa, log: log}
}

// InitiateTopUp records a pending payment for the product's fixed price and
// sends the STK push. The provider call happens outside any transaction and is
// not retried.
func (s *TopUpService) InitiateTopUp(ctx context.Context, userID uuid.UUID, phone, currencyCode string) (*models.MpesaPayment, error) {
	var product models.CurrencyProduct
	err := s.db.WithContext(ctx).Where("code = ? AND active = ?", currencyCode, true).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "Currency not available.")
	}
	if err != nil {
		return nil, err
	}

	sanitized, err := payments.SanitizeMpesaNumber(phone)
	if err != nil {
		return nil, newError(ErrValidation, "Invalid M-Pesa phone number.")
	}

	db := s.db.WithContext(ctx)
	payment, err := s.payments.RecordPayment(db, userID, sanitized, product.Code, product.PriceKES, models.PaymentPending)
	if err != nil {
		return nil, err
	}

	// remember the paying number so a callback without a known checkout id can still be matched
	if err := db.Model(&models.User{}).
		Where("id = ? AND (phone_number IS NULL OR phone_number = '')", userID).
		Update("phone_number", sanitized).Error; err != nil {
		s.log.Warn("failed to store user phone number", zap.String("user_id", userID.String()), zap.Error(err))
	}

	resp, err := s.mpesa.STKPush(ctx, sanitized, product.PriceKES.IntPart(), product.Code)
	if err != nil {
		s.log.Error("STK push failed",
			zap.String("user_id", userID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
		payment.Status = models.PaymentFailed
		payment.ResultDesc = err.Error()
		if uerr := db.Model(payment).Updates(map[string]interface{}{
			"status":      payment.Status,
			"result_desc": payment.ResultDesc,
		}).Error; uerr != nil {
			s.log.Error("failed to mark payment failed", zap.String("payment_id", payment.ID.String()), zap.Error(uerr))
		}
		return nil, newError(ErrUpstream, "Failed to initiate M-Pesa payment. Please try again.")
	}

	payment.MerchantRequestID = &resp.MerchantRequestID
	payment.CheckoutRequestID = &resp.CheckoutRequestID
	if err := db.Model(payment).Updates(map[string]interface{}{
		"merchant_request_id": payment.MerchantRequestID,
		"checkout_request_id": payment.CheckoutRequestID,
	}).Error; err != nil {
		return nil, err
	}

	s.log.Info("top-up initiated",
		zap.String("user_id", userID.String()),
		zap.String("checkout_request_id", resp.CheckoutRequestID),
		zap.String("currency", product.Code),
		zap.String("amount", product.PriceKES.StringFixed(2)))
	return payment, nil
}
