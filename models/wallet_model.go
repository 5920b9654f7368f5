package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet is the single KES balance owned by a user.
type Wallet struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
