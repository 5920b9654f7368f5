package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type RentalSettler interface {
	SettleMatured(ctx context.Context, now time.Time) (int, error)
}

// SettleMaturedRentals credits the expected return of every rental that has
// reached its maturity date.
func SettleMaturedRentals(ctx context.Context, rentals RentalSettler, log *zap.Logger) {
	log.Debug("running job: SettleMaturedRentals")

	settled, err := rentals.SettleMatured(ctx, time.Now())
	if err != nil {
		log.Error("failed to settle matured rentals", zap.Error(err))
		return
	}
	if settled == 0 {
		log.Debug("no matured rentals found")
		return
	}
	log.Info("settled matured rentals", zap.Int("count", settled))
}
