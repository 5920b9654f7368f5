package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
)

type Referral struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_referrer_email" json:"referrer_id"`
	ReferredID    *uuid.UUID      `gorm:"type:uuid;index" json:"referred_id"`
	ReferredEmail string          `gorm:"size:255;not null;uniqueIndex:idx_referrer_email" json:"referred_email"`
	Status        string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	Reward        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"reward"`

	Referrer User `gorm:"foreignKey:ReferrerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
