package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type WithdrawalEscalator interface {
	EscalateStale(ctx context.Context, now time.Time) (int64, error)
}

// EscalateStaleWithdrawals moves long-pending withdrawals to processing so
// they surface in the admin queue.
func EscalateStaleWithdrawals(ctx context.Context, withdrawals WithdrawalEscalator, log *zap.Logger) {
	log.Debug("running job: EscalateStaleWithdrawals")

	escalated, err := withdrawals.EscalateStale(ctx, time.Now())
	if err != nil {
		log.Error("failed to escalate withdrawals", zap.Error(err))
		return
	}
	if escalated > 0 {
		log.Info("escalated stale withdrawals", zap.Int64("count", escalated))
	}
}
