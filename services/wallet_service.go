package services

import (
	"bytes"
	"context"
	"sort"

	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewWalletService(db *gorm.DB, log *zap.Logger) *WalletService {
	return &WalletService{db: db, log: log}
}

// GetOrCreateWallet returns the user's wallet, creating an empty one if the user has none.
func (s *WalletService) GetOrCreateWallet(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	wallet := models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&wallet).Error; err != nil {
		return nil, err
	}

	var existing models.Wallet
	if err := tx.Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// LockWallets takes row locks on the wallets of the given users inside tx.
// Locks are always acquired in ascending user id order so two transactions
// touching the same pair of wallets cannot deadlock.
func (s *WalletService) LockWallets(tx *gorm.DB, userIDs ...uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	ids := uniqueSorted(userIDs)
	wallets := make(map[uuid.UUID]*models.Wallet, len(ids))

	for _, id := range ids {
		if _, err := s.GetOrCreateWallet(tx, id); err != nil {
			return nil, err
		}
		var w models.Wallet
		if err := lockForUpdate(tx).Where("user_id = ?", id).First(&w).Error; err != nil {
			return nil, err
		}
		wallets[id] = &w
	}
	return wallets, nil
}

// WithWalletLock runs fn in one transaction while holding the user's wallet row lock.
// The lock is released when the transaction commits or rolls back, including on panic.
func (s *WalletService) WithWalletLock(ctx context.Context, userID uuid.UUID, fn func(tx *gorm.DB, wallet *models.Wallet) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallets, err := s.LockWallets(tx, userID)
		if err != nil {
			return err
		}
		return fn(tx, wallets[userID])
	})
}

func (s *WalletService) Credit(tx *gorm.DB, wallet *models.Wallet, amount decimal.Decimal, reason string, ref *uuid.UUID) error {
	if !amount.IsPositive() {
		return newError(ErrValidation, "Credit amount must be greater than zero.")
	}
	return s.apply(tx, wallet, wallet.Balance.Add(amount), models.WalletTxCredit, amount, reason, ref)
}

// Debit fails with ErrInsufficientFunds rather than letting the balance go negative.
func (s *WalletService) Debit(tx *gorm.DB, wallet *models.Wallet, amount decimal.Decimal, reason string, ref *uuid.UUID) error {
	if !amount.IsPositive() {
		return newError(ErrValidation, "Debit amount must be greater than zero.")
	}
	if amount.GreaterThan(wallet.Balance) {
		return newError(ErrInsufficientFunds, "Insufficient balance.")
	}
	return s.apply(tx, wallet, wallet.Balance.Sub(amount), models.WalletTxDebit, amount, reason, ref)
}

func (s *WalletService) apply(tx *gorm.DB, wallet *models.Wallet, newBalance decimal.Decimal, txType string, amount decimal.Decimal, reason string, ref *uuid.UUID) error {
	if err := tx.Model(wallet).Update("balance", newBalance).Error; err != nil {
		return err
	}
	wallet.Balance = newBalance

	entry := models.WalletTransaction{
		UserID:       wallet.UserID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: newBalance,
		Reason:       reason,
		ReferenceID:  ref,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	s.log.Debug("wallet updated",
		zap.String("user_id", wallet.UserID.String()),
		zap.String("type", txType),
		zap.String("reason", reason),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", newBalance.StringFixed(2)))
	return nil
}

func (s *WalletService) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.GetOrCreateWallet(tx, userID)
		wallet = w
		return err
	})
	return wallet, err
}

func (s *WalletService) Transactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error) {
	page, limit = normalisePage(page, limit)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.WalletTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func normalisePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
