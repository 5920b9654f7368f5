package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const SettlementCurrency = "KES"

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// MpesaPayment tracks one STK push from initiation to callback. Amount is always
// in the settlement currency; CurrencyCode is the rented currency.
type MpesaPayment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	PhoneNumber       string          `gorm:"size:20;not null" json:"phone_number"`
	CurrencyCode      string          `gorm:"size:10;not null" json:"currency"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	SettlementCurr    string          `gorm:"column:settlement_currency;size:3;not null;default:'KES'" json:"settlement_currency"`
	Status            string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	MerchantRequestID *string         `gorm:"size:64;index" json:"merchant_request_id"`
	CheckoutRequestID *string         `gorm:"size:64;uniqueIndex" json:"checkout_request_id"`
	ResultCode        string          `gorm:"size:10" json:"result_code"`
	ResultDesc        string          `gorm:"type:text" json:"result_desc"`
	ReceiptNumber     string          `gorm:"size:64" json:"receipt_number"`
	RawCallback       datatypes.JSON  `json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *MpesaPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.SettlementCurr == "" {
		p.SettlementCurr = SettlementCurrency
	}
	return nil
}
