package services

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

// RecordPayment appends a payment in the settlement currency. currency is the
// rented product code and is kept as metadata only.
func (s *PaymentService) RecordPayment(tx *gorm.DB, userID uuid.UUID, phone, currency string, amount decimal.Decimal, status string) (*models.MpesaPayment, error) {
	if !amount.IsPositive() {
		return nil, newError(ErrValidation, "Payment amount must be greater than zero.")
	}
	switch status {
	case models.PaymentPending, models.PaymentCompleted, models.PaymentFailed:
	default:
		return nil, newError(ErrValidation, "Unknown payment status.")
	}

	payment := models.MpesaPayment{
		UserID:         userID,
		PhoneNumber:    phone,
		CurrencyCode:   currency,
		Amount:         amount,
		SettlementCurr: models.SettlementCurrency,
		Status:         status,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByCheckoutID locks and returns the payment for a provider checkout request id.
func (s *PaymentService) FindByCheckoutID(tx *gorm.DB, checkoutID string) (*models.MpesaPayment, error) {
	var payment models.MpesaPayment
	err := lockForUpdate(tx).Where("checkout_request_id = ?", checkoutID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) History(ctx context.Context, userID uuid.UUID) ([]models.MpesaPayment, error) {
	var payments []models.MpesaPayment
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&payments).Error
	return payments, err
}

func (s *PaymentService) List(ctx context.Context, status string, page, limit int) ([]models.MpesaPayment, int64, error) {
	page, limit = normalisePage(page, limit)

	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.MpesaPayment{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.MpesaPayment
	err := query().Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&payments).Error
	return payments, total, err
}

// CompletedBetween returns completed payments created in [from, to], oldest first, with their owners.
func (s *PaymentService) CompletedBetween(ctx context.Context, from, to time.Time) ([]models.MpesaPayment, error) {
	var payments []models.MpesaPayment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("status = ? AND created_at BETWEEN ? AND ?", models.PaymentCompleted, from, to).
		Order("created_at asc").
		Find(&payments).Error
	return payments, err
}
