package services

import (
	"context"
	"errors"
	"testing"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/payments"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPusher struct {
	err       error
	calls     int
	phone     string
	amount    int64
	reference string
}

func (p *stubPusher) STKPush(_ context.Context, phone string, amount int64, ref string) (*payments.StkPushResponse, error) {
	p.calls++
	p.phone, p.amount, p.reference = phone, amount, ref
	if p.err != nil {
		return nil, p.err
	}
	return &payments.StkPushResponse{MerchantRequestID: "m-1", CheckoutRequestID: "ws_CO_topup", ResponseCode: "0"}, nil
}

func TestInitiateTopUpUsesCatalogPrice(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "cheru", "", "")
	pusher := &stubPusher{}
	topups := NewTopUpService(env.db, env.payments, pusher, zap.NewNop())

	payment, err := topups.InitiateTopUp(context.Background(), user.ID, "0712345678", "JPY")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, payment.Status)
	requireAmount(t, "750", payment.Amount)
	require.Equal(t, "ws_CO_topup", *payment.CheckoutRequestID)

	require.Equal(t, "254712345678", pusher.phone)
	require.Equal(t, int64(750), pusher.amount)
	require.Equal(t, "JPY", pusher.reference)

	var stored models.User
	require.NoError(t, env.db.First(&stored, "id = ?", user.ID).Error)
	require.Equal(t, "254712345678", *stored.PhoneNumber)

	// the callback for this checkout settles against the pending payment
	ack := env.callbacks.HandleSTKCallback(context.Background(), stkSuccess("ws_CO_topup", 750, "254712345678"))
	require.Equal(t, 0, ack.ResultCode)
	requireAmount(t, "750", env.balance(t, user.ID))
}

func TestInitiateTopUpProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "duma", "", "")
	topups := NewTopUpService(env.db, env.payments, &stubPusher{err: errors.New("timeout")}, zap.NewNop())

	_, err := topups.InitiateTopUp(context.Background(), user.ID, "0712345678", "USD")
	require.ErrorIs(t, err, ErrUpstream)

	history, err := env.payments.History(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.PaymentFailed, history[0].Status)
}

func TestInitiateTopUpRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "eddy", "", "")
	pusher := &stubPusher{}
	topups := NewTopUpService(env.db, env.payments, pusher, zap.NewNop())

	_, err := topups.InitiateTopUp(context.Background(), user.ID, "0712345678", "XYZ")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = topups.InitiateTopUp(context.Background(), user.ID, "123", "USD")
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, pusher.calls)
}
