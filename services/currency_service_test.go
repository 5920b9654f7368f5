package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKESRatesInvertsAndCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		require.Equal(t, "/key/latest/KES", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","conversion_rates":{"KES":1,"USD":0.0078125,"EUR":0.008}}`))
	}))
	defer srv.Close()

	svc := NewExchangeRateService("key", zap.NewNop())
	svc.baseURL = srv.URL

	rates, err := svc.KESRates(context.Background())
	require.NoError(t, err)
	requireAmount(t, "128", rates["USD"])
	requireAmount(t, "125", rates["EUR"])

	_, err = svc.KESRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, hits)
}

func TestKESRatesWithoutKey(t *testing.T) {
	_, err := NewExchangeRateService("", zap.NewNop()).KESRates(context.Background())
	require.ErrorIs(t, err, ErrRatesUnavailable)
}
