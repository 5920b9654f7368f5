package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalPaid       = "paid"
	WithdrawalRejected   = "rejected"
)

type Withdrawal struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	MobileNumber string          `gorm:"size:15;not null" json:"mobile_number"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status       string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AdminNotes   *string         `gorm:"type:text" json:"admin_notes"`
	ProcessedAt  *time.Time      `json:"processed_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (w *Withdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
