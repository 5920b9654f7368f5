package services

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Withdrawals that still hold reserved funds and wait for an admin decision.
var openWithdrawalStatuses = []string{models.WithdrawalPending, models.WithdrawalProcessing}

type WithdrawalService struct {
	db            *gorm.DB
	wallet        *WalletService
	escalateAfter time.Duration
	log           *zap.Logger
	now           func() time.Time
}

func NewWithdrawalService(db *gorm.DB, wallet *WalletService, escalateAfter time.Duration, log *zap.Logger) *WithdrawalService {
	return &WithdrawalService{db: db, wallet: wallet, escalateAfter: escalateAfter, log: log, now: time.Now}
}

// Submit reserves amount from the user's wallet and opens a pending withdrawal.
// The pending check, balance check, reservation and insert happen under the wallet lock.
func (s *WithdrawalService) Submit(ctx context.Context, userID uuid.UUID, mobile string, amount decimal.Decimal) (*models.Withdrawal, error) {
	if !amount.IsPositive() {
		return nil, newError(ErrValidation, "Invalid withdrawal amount.")
	}
	phone, err := payments.SanitizeMpesaNumber(mobile)
	if err != nil {
		return nil, newError(ErrValidation, "Invalid mobile number.")
	}

	withdrawal := models.Withdrawal{
		ID:           uuid.New(),
		UserID:       userID,
		MobileNumber: phone,
		Amount:       amount.Round(2),
		Status:       models.WithdrawalPending,
		CreatedAt:    s.now(),
	}

	err = s.wallet.WithWalletLock(ctx, userID, func(tx *gorm.DB, wallet *models.Wallet) error {
		var open int64
		if err := tx.Model(&models.Withdrawal{}).
			Where("user_id = ? AND status IN ?", userID, openWithdrawalStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return newError(ErrConflict, "You already have a pending withdrawal request.")
		}

		if err := s.wallet.Debit(tx, wallet, withdrawal.Amount, models.ReasonWithdrawalReserve, &withdrawal.ID); err != nil {
			return err
		}
		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal submitted",
		zap.String("withdrawal_id", withdrawal.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", withdrawal.Amount.StringFixed(2)))
	return &withdrawal, nil
}

// Approve marks an open withdrawal as paid. Funds were reserved at submit time,
// so the wallet is not touched.
func (s *WithdrawalService) Approve(ctx context.Context, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.lockOpen(tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		w.Status = models.WithdrawalPaid
		w.ProcessedAt = &now
		if notes != "" {
			w.AdminNotes = &notes
		}
		if err := tx.Model(w).Updates(map[string]interface{}{
			"status":       w.Status,
			"processed_at": w.ProcessedAt,
			"admin_notes":  w.AdminNotes,
		}).Error; err != nil {
			return err
		}
		withdrawal = *w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal approved", zap.String("withdrawal_id", id.String()))
	return &withdrawal, nil
}

// Reject refunds the reserved amount and closes the withdrawal.
func (s *WithdrawalService) Reject(ctx context.Context, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	var owner models.Withdrawal
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&owner, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Withdrawal not found or already processed.")
		}
		return nil, err
	}

	var withdrawal models.Withdrawal
	err := s.wallet.WithWalletLock(ctx, owner.UserID, func(tx *gorm.DB, wallet *models.Wallet) error {
		w, err := s.lockOpen(tx, id)
		if err != nil {
			return err
		}
		if err := s.wallet.Credit(tx, wallet, w.Amount, models.ReasonWithdrawalRefund, &w.ID); err != nil {
			return err
		}

		now := s.now()
		w.Status = models.WithdrawalRejected
		w.ProcessedAt = &now
		if notes != "" {
			w.AdminNotes = &notes
		}
		if err := tx.Model(w).Updates(map[string]interface{}{
			"status":       w.Status,
			"processed_at": w.ProcessedAt,
			"admin_notes":  w.AdminNotes,
		}).Error; err != nil {
			return err
		}
		withdrawal = *w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal rejected and refunded",
		zap.String("withdrawal_id", id.String()),
		zap.String("amount", withdrawal.Amount.StringFixed(2)))
	return &withdrawal, nil
}

// EscalateIfDue moves a single pending withdrawal to processing once it has
// waited escalateAfter. It reports whether the status changed.
func (s *WithdrawalService) EscalateIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ? AND created_at <= ?", id, models.WithdrawalPending, now.Add(-s.escalateAfter)).
		Update("status", models.WithdrawalProcessing)
	return res.RowsAffected > 0, res.Error
}

func (s *WithdrawalService) EscalateStale(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("status = ? AND created_at <= ?", models.WithdrawalPending, now.Add(-s.escalateAfter)).
		Update("status", models.WithdrawalProcessing)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("withdrawals escalated to processing", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *WithdrawalService) History(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&withdrawals).Error
	return withdrawals, err
}

// ListByStatus returns withdrawals for the admin queue, newest first. An empty
// status lists every open withdrawal.
func (s *WithdrawalService) ListByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	query := s.db.WithContext(ctx).Preload("User")
	if status == "" {
		query = query.Where("status IN ?", openWithdrawalStatuses)
	} else {
		query = query.Where("status = ?", status)
	}

	var withdrawals []models.Withdrawal
	err := query.Order("created_at desc").Find(&withdrawals).Error
	return withdrawals, err
}

func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := s.db.WithContext(ctx).Preload("User").First(&withdrawal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Withdrawal not found.")
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (s *WithdrawalService) lockOpen(tx *gorm.DB, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := lockForUpdate(tx).Where("id = ? AND status IN ?", id, openWithdrawalStatuses).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "Withdrawal not found or already processed.")
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
