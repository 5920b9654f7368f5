package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CurrencyProduct is a rentable currency with a fixed KES price.
type CurrencyProduct struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code     string          `gorm:"size:10;not null;uniqueIndex" json:"code"`
	Name     string          `gorm:"size:100;not null" json:"name"`
	PriceKES decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_kes"`
	Active   bool            `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *CurrencyProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
