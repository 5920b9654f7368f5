package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	rentalMaturitySpec     = "@hourly"
	withdrawalEscalateSpec = "*/15 * * * *"
)

// Schedule registers the background jobs on c. Jobs run with ctx so they stop
// touching the database once the server shuts down.
func Schedule(ctx context.Context, c *cron.Cron, rentals RentalSettler, withdrawals WithdrawalEscalator, log *zap.Logger) error {
	if _, err := c.AddFunc(rentalMaturitySpec, func() {
		SettleMaturedRentals(ctx, rentals, log)
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc(withdrawalEscalateSpec, func() {
		EscalateStaleWithdrawals(ctx, withdrawals, log)
	}); err != nil {
		return err
	}
	return nil
}
