package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers         int64           `json:"total_users"`
	ActiveUsers        int64           `json:"active_users"`
	WalletFloat        decimal.Decimal `json:"wallet_float"`
	CompletedTopUps    int64           `json:"completed_topups"`
	TopUpVolume        decimal.Decimal `json:"topup_volume"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	PendingPayoutValue decimal.Decimal `json:"pending_withdrawal_value"`
	ActiveRentals      int64           `json:"active_rentals"`
	OutstandingReturns decimal.Decimal `json:"outstanding_returns"`
}

type AdminService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAdminService(db *gorm.DB, log *zap.Logger) *AdminService {
	return &AdminService{db: db, log: log}
}

func (s *AdminService) ListUsers(ctx context.Context, search string, page, limit int) ([]models.User, int64, error) {
	page, limit = normalisePage(page, limit)

	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.User{})
		if term := strings.TrimSpace(search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query().Preload("Wallet").Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

// SetUserActive enables or disables a non-admin account. Disabling also ends
// the user's open sessions.
func (s *AdminService) SetUserActive(ctx context.Context, userID uuid.UUID, active bool) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrNotFound, "User not found.")
			}
			return err
		}
		if user.IsAdmin() {
			return newError(ErrForbidden, "Admin accounts cannot be modified.")
		}

		if err := tx.Model(&user).Update("is_active", active).Error; err != nil {
			return err
		}
		user.IsActive = active

		if !active {
			return tx.Model(&models.UserSession{}).
				Where("user_id = ? AND is_active = ?", userID, true).
				Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user status changed", zap.String("user_id", userID.String()), zap.Bool("active", active))
	return &user, nil
}

func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}

	var err error
	if stats.WalletFloat, err = sumColumn(db.Model(&models.Wallet{}), "balance"); err != nil {
		return nil, err
	}

	completed := db.Model(&models.MpesaPayment{}).Where("status = ?", models.PaymentCompleted)
	if err := completed.Count(&stats.CompletedTopUps).Error; err != nil {
		return nil, err
	}
	if stats.TopUpVolume, err = sumColumn(db.Model(&models.MpesaPayment{}).Where("status = ?", models.PaymentCompleted), "amount"); err != nil {
		return nil, err
	}

	open := func() *gorm.DB {
		return db.Model(&models.Withdrawal{}).Where("status IN ?", openWithdrawalStatuses)
	}
	if err := open().Count(&stats.PendingWithdrawals).Error; err != nil {
		return nil, err
	}
	if stats.PendingPayoutValue, err = sumColumn(open(), "amount"); err != nil {
		return nil, err
	}

	active := func() *gorm.DB {
		return db.Model(&models.Rental{}).Where("status = ?", models.RentalActive)
	}
	if err := active().Count(&stats.ActiveRentals).Error; err != nil {
		return nil, err
	}
	if stats.OutstandingReturns, err = sumColumn(active(), "expected_return"); err != nil {
		return nil, err
	}

	return stats, nil
}

// sumColumn totals a numeric column. NULL (no rows) sums to zero.
func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := q.Select("COALESCE(SUM(" + column + "), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
