package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	config "github.com/anjiri1684/liquidity/configs"
	"github.com/anjiri1684/liquidity/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendPostsToBrevo(t *testing.T) {
	var got brevoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "k", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	svc := NewBrevoService(config.EmailConfig{APIKey: "k", SenderEmail: "no-reply@example.com", SenderName: "Liquidity"}, zap.NewNop())
	svc.endpoint = srv.URL

	require.NoError(t, svc.Send(context.Background(), "", "jane@example.com", "Hi", "<p>x</p>"))
	require.Equal(t, "Hi", got.Subject)
	require.Equal(t, "jane", got.To[0]["name"])

	require.Error(t, svc.Send(context.Background(), "Jane", "not-an-email", "Hi", ""))
}

func TestUnconfiguredServiceIsNoop(t *testing.T) {
	svc := NewBrevoService(config.EmailConfig{}, zap.NewNop())
	require.False(t, svc.Enabled())
	require.NoError(t, svc.Send(context.Background(), "", "jane@example.com", "Hi", ""))

	var nilSvc *BrevoService
	require.False(t, nilSvc.Enabled())
}

func TestWithdrawalDecisionEmailEscapesNotes(t *testing.T) {
	notes := "<script>x</script>"
	subject, body := WithdrawalDecisionEmail(
		&models.User{FullName: "Jane"},
		&models.Withdrawal{Status: models.WithdrawalRejected, Amount: decimal.NewFromInt(10), AdminNotes: &notes},
	)
	require.Equal(t, "Withdrawal rejected", subject)
	require.NotContains(t, body, "<script>")
	require.Contains(t, body, "KES 10.00")
}
