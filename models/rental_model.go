package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RentalActive    = "active"
	RentalCompleted = "completed"
	RentalFailed    = "failed"
)

type Rental struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	PaymentID      *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"payment_id"`
	Currency       string          `gorm:"size:10;not null" json:"currency"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	ExpectedReturn decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"expected_return"`
	Status         string          `gorm:"size:20;not null;default:'active';index" json:"status"`
	DurationDays   int             `gorm:"not null" json:"duration_days"`
	MaturesAt      time.Time       `gorm:"not null;index" json:"matures_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
	CertificateURL *string         `gorm:"size:512" json:"certificate_url"`

	User User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *Rental) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
