package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettler struct {
	calls int
	err   error
}

func (f *fakeSettler) SettleMatured(_ context.Context, _ time.Time) (int, error) {
	f.calls++
	return 2, f.err
}

type fakeEscalator struct {
	calls int
}

func (f *fakeEscalator) EscalateStale(_ context.Context, _ time.Time) (int64, error) {
	f.calls++
	return 1, nil
}

func TestJobsCallServices(t *testing.T) {
	settler := &fakeSettler{}
	escalator := &fakeEscalator{}

	SettleMaturedRentals(context.Background(), settler, zap.NewNop())
	EscalateStaleWithdrawals(context.Background(), escalator, zap.NewNop())

	require.Equal(t, 1, settler.calls)
	require.Equal(t, 1, escalator.calls)
}

func TestSettleErrorIsLoggedNotPanicked(t *testing.T) {
	settler := &fakeSettler{err: errors.New("db down")}
	require.NotPanics(t, func() {
		SettleMaturedRentals(context.Background(), settler, zap.NewNop())
	})
}

func TestScheduleRegistersBothJobs(t *testing.T) {
	c := cron.New()
	err := Schedule(context.Background(), c, &fakeSettler{}, &fakeEscalator{}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)
}
