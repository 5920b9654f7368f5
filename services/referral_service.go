package services

import (
	"context"
	"errors"

	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// A referrer earns half of every top-up made by the user they referred.
var referralRewardShare = decimal.NewFromFloat(0.5)

type ReferralService struct {
	db     *gorm.DB
	wallet *WalletService
	log    *zap.Logger
}

func NewReferralService(db *gorm.DB, wallet *WalletService, log *zap.Logger) *ReferralService {
	return &ReferralService{db: db, wallet: wallet, log: log}
}

type ReferralSummary struct {
	ReferralCode string          `json:"referral_code"`
	Total        int64           `json:"total_referrals"`
	Completed    int64           `json:"completed_referrals"`
	TotalReward  decimal.Decimal `json:"total_reward"`
}

func RewardFor(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(referralRewardShare).Round(2)
}

// Record links a newly registered user to the owner of the referral code they used.
func (s *ReferralService) Record(tx *gorm.DB, referrerID uuid.UUID, referred *models.User) error {
	referral := models.Referral{
		ReferrerID:    referrerID,
		ReferredID:    &referred.ID,
		ReferredEmail: referred.Email,
		Status:        models.ReferralPending,
		Reward:        decimal.Zero,
	}
	return tx.Create(&referral).Error
}

// ApplyReward credits the referrer of user with half of amount and accrues it on
// the referral row. Rewards are cumulative across top-ups. referrerWallet must
// already be locked by the caller.
func (s *ReferralService) ApplyReward(tx *gorm.DB, user *models.User, amount decimal.Decimal, referrerWallet *models.Wallet) (decimal.Decimal, error) {
	if user.ReferredByID == nil {
		return decimal.Zero, nil
	}
	referrerID := *user.ReferredByID
	if referrerWallet == nil || referrerWallet.UserID != referrerID {
		return decimal.Zero, errors.New("referrer wallet not locked")
	}

	reward := RewardFor(amount)
	if !reward.IsPositive() {
		return decimal.Zero, nil
	}

	var referral models.Referral
	err := lockForUpdate(tx).
		Where("referrer_id = ? AND (referred_id = ? OR referred_email = ?)", referrerID, user.ID, user.Email).
		First(&referral).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		referral = models.Referral{
			ReferrerID:    referrerID,
			ReferredID:    &user.ID,
			ReferredEmail: user.Email,
			Status:        models.ReferralCompleted,
			Reward:        reward,
		}
		if err := tx.Create(&referral).Error; err != nil {
			return decimal.Zero, err
		}
	case err != nil:
		return decimal.Zero, err
	default:
		err := tx.Model(&referral).Updates(map[string]interface{}{
			"reward":      referral.Reward.Add(reward),
			"status":      models.ReferralCompleted,
			"referred_id": user.ID,
		}).Error
		if err != nil {
			return decimal.Zero, err
		}
	}

	if err := s.wallet.Credit(tx, referrerWallet, reward, models.ReasonReferralReward, &referral.ID); err != nil {
		return decimal.Zero, err
	}

	s.log.Info("referral reward credited",
		zap.String("referrer_id", referrerID.String()),
		zap.String("referred_id", user.ID.String()),
		zap.String("reward", reward.StringFixed(2)))
	return reward, nil
}

func (s *ReferralService) List(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.db.WithContext(ctx).Where("referrer_id = ?", referrerID).Order("created_at desc").Find(&referrals).Error
	return referrals, err
}

func (s *ReferralService) Summary(ctx context.Context, referrer *models.User) (*ReferralSummary, error) {
	referrals, err := s.List(ctx, referrer.ID)
	if err != nil {
		return nil, err
	}

	summary := &ReferralSummary{Total: int64(len(referrals)), TotalReward: decimal.Zero}
	if referrer.ReferralCode != nil {
		summary.ReferralCode = *referrer.ReferralCode
	}
	for _, r := range referrals {
		if r.Status == models.ReferralCompleted {
			summary.Completed++
		}
		summary.TotalReward = summary.TotalReward.Add(r.Reward)
	}
	return summary, nil
}
