package services

import (
	"context"
	"time"

	config "github.com/anjiri1684/liquidity/configs"
	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RentalService struct {
	db     *gorm.DB
	wallet *WalletService
	policy config.RentalPolicy
	log    *zap.Logger
	now    func() time.Time
}

func NewRentalService(db *gorm.DB, wallet *WalletService, policy config.RentalPolicy, log *zap.Logger) *RentalService {
	return &RentalService{db: db, wallet: wallet, policy: policy, log: log, now: time.Now}
}

// OpenRental records a rental whose expected return and duration are fixed
// from the policy at creation time.
func (s *RentalService) OpenRental(tx *gorm.DB, userID uuid.UUID, currency string, amount decimal.Decimal, paymentID *uuid.UUID) (*models.Rental, error) {
	if !amount.IsPositive() {
		return nil, newError(ErrValidation, "Rental amount must be greater than zero.")
	}

	createdAt := s.now()
	rental := models.Rental{
		UserID:         userID,
		PaymentID:      paymentID,
		Currency:       currency,
		Amount:         amount,
		ExpectedReturn: amount.Mul(decimal.NewFromInt(s.policy.Multiplier)),
		Status:         models.RentalActive,
		DurationDays:   s.policy.DurationDays,
		MaturesAt:      createdAt.AddDate(0, 0, s.policy.DurationDays),
		CreatedAt:      createdAt,
	}
	if err := tx.Create(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (s *RentalService) ListRentals(ctx context.Context, userID uuid.UUID) ([]models.Rental, error) {
	var rentals []models.Rental
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rentals).Error
	return rentals, err
}

// PendingReturns sums the expected return of the user's active rentals.
func (s *RentalService) PendingReturns(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var rentals []models.Rental
	err := s.db.WithContext(ctx).
		Select("expected_return").
		Where("user_id = ? AND status = ?", userID, models.RentalActive).
		Find(&rentals).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range rentals {
		total = total.Add(r.ExpectedReturn)
	}
	return total, nil
}

// SettleMatured pays out every active rental whose term has ended. Each rental
// settles in its own transaction; a failed one stays active for the next run.
func (s *RentalService) SettleMatured(ctx context.Context, now time.Time) (int, error) {
	var due []models.Rental
	err := s.db.WithContext(ctx).
		Where("status = ? AND matures_at <= ?", models.RentalActive, now).
		Order("matures_at asc").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, r := range due {
		rental := r
		paid := false
		err := s.wallet.WithWalletLock(ctx, rental.UserID, func(tx *gorm.DB, wallet *models.Wallet) error {
			res := tx.Model(&models.Rental{}).
				Where("id = ? AND status = ?", rental.ID, models.RentalActive).
				Updates(map[string]interface{}{"status": models.RentalCompleted, "completed_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			if err := s.wallet.Credit(tx, wallet, rental.ExpectedReturn, models.ReasonRentalPayout, &rental.ID); err != nil {
				return err
			}
			paid = true
			return nil
		})
		if err != nil {
			s.log.Error("failed to settle rental",
				zap.String("rental_id", rental.ID.String()),
				zap.String("user_id", rental.UserID.String()),
				zap.Error(err))
			continue
		}
		if paid {
			settled++
			s.log.Info("rental settled",
				zap.String("rental_id", rental.ID.String()),
				zap.String("payout", rental.ExpectedReturn.StringFixed(2)))
		}
	}
	return settled, nil
}

func (s *RentalService) SetCertificateURL(ctx context.Context, rentalID uuid.UUID, url string) error {
	return s.db.WithContext(ctx).Model(&models.Rental{}).Where("id = ?", rentalID).Update("certificate_url", url).Error
}
