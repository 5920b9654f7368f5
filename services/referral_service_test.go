package services

import (
	"context"
	"testing"

	"github.com/anjiri1684/liquidity/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRewardFor(t *testing.T) {
	requireAmount(t, "50", RewardFor(decimal.NewFromInt(100)))
	requireAmount(t, "0.5", RewardFor(decimal.NewFromInt(1)))
	requireAmount(t, "62.63", RewardFor(decimal.RequireFromString("125.25")))
}

func TestReferralRewardAccumulatesAcrossTopUps(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	referrer := env.register(t, "paul", "", "")
	user := env.register(t, "quinn", "0755000000", *referrer.ReferralCode)

	env.pendingPayment(t, user, "CAD", 100, "ws_CO_r1")
	env.pendingPayment(t, user, "AUD", 250, "ws_CO_r2")
	require.Equal(t, 0, env.callbacks.HandleSTKCallback(ctx, stkSuccess("ws_CO_r1", 100, "254755000000")).ResultCode)
	require.Equal(t, 0, env.callbacks.HandleSTKCallback(ctx, stkSuccess("ws_CO_r2", 250, "254755000000")).ResultCode)

	requireAmount(t, "175", env.balance(t, referrer.ID))

	summary, err := env.referrals.Summary(ctx, referrer)
	require.NoError(t, err)
	require.Equal(t, *referrer.ReferralCode, summary.ReferralCode)
	require.EqualValues(t, 1, summary.Total)
	require.EqualValues(t, 1, summary.Completed)
	requireAmount(t, "175", summary.TotalReward)

	var ledger []models.WalletTransaction
	require.NoError(t, env.db.Where("user_id = ? AND reason = ?", referrer.ID, models.ReasonReferralReward).Find(&ledger).Error)
	require.Len(t, ledger, 2)
}

func TestUnreferredTopUpPaysNoReward(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.register(t, "ruth", "0766000000", "")

	env.pendingPayment(t, user, "CAD", 100, "ws_CO_r3")
	require.Equal(t, 0, env.callbacks.HandleSTKCallback(ctx, stkSuccess("ws_CO_r3", 100, "254766000000")).ResultCode)

	var rewards int64
	require.NoError(t, env.db.Model(&models.WalletTransaction{}).Where("reason = ?", models.ReasonReferralReward).Count(&rewards).Error)
	require.Zero(t, rewards)
}
