package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WalletTxCredit = "credit"
	WalletTxDebit  = "debit"
)

const (
	ReasonTopUp             = "topup"
	ReasonReferralReward    = "referral_reward"
	ReasonWithdrawalReserve = "withdrawal_reserve"
	ReasonWithdrawalRefund  = "withdrawal_refund"
	ReasonRentalPayout      = "rental_payout"
)

// WalletTransaction is an append-only ledger line written next to every balance change.
type WalletTransaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string          `gorm:"size:10;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_after"`
	Reason       string          `gorm:"size:30;not null" json:"reason"`
	ReferenceID  *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
