package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	config "github.com/anjiri1684/liquidity/configs"
	"github.com/anjiri1684/liquidity/database"
	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	wallet      *WalletService
	payments    *PaymentService
	rentals     *RentalService
	referrals   *ReferralService
	withdrawals *WithdrawalService
	callbacks   *CallbackService
	auth        *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	log := zap.NewNop()
	require.NoError(t, database.SeedCurrencyProducts(db, log))

	wallet := NewWalletService(db, log)
	payments := NewPaymentService(db)
	rentals := NewRentalService(db, wallet, config.DefaultRentalPolicy(), log)
	referrals := NewReferralService(db, wallet, log)

	return &testEnv{
		db:          db,
		wallet:      wallet,
		payments:    payments,
		rentals:     rentals,
		referrals:   referrals,
		withdrawals: NewWithdrawalService(db, wallet, 48*time.Hour, log),
		callbacks:   NewCallbackService(db, wallet, payments, rentals, referrals, log),
		auth:        NewAuthService(db, wallet, referrals, "test-secret", time.Hour, log),
	}
}

// register creates a user through the real registration path.
func (e *testEnv) register(t *testing.T, name, phone, referralCode string) *models.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterInput{
		FullName:     name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password:     "password123",
		PhoneNumber:  phone,
		ReferralCode: referralCode,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) fund(t *testing.T, userID uuid.UUID, amount int64) {
	t.Helper()
	err := e.wallet.WithWalletLock(context.Background(), userID, func(tx *gorm.DB, w *models.Wallet) error {
		return e.wallet.Credit(tx, w, decimal.NewFromInt(amount), models.ReasonTopUp, nil)
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := e.wallet.Balance(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func (e *testEnv) pendingPayment(t *testing.T, user *models.User, currency string, amount int64, checkoutID string) *models.MpesaPayment {
	t.Helper()
	payment, err := e.payments.RecordPayment(e.db, user.ID, "254712345678", currency, decimal.NewFromInt(amount), models.PaymentPending)
	require.NoError(t, err)
	require.NoError(t, e.db.Model(payment).Update("checkout_request_id", checkoutID).Error)
	return payment
}

func stkSuccess(checkoutID string, amount int64, phone string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"m-%[1]s","CheckoutRequestID":"%[1]s","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":%[2]d},{"Name":"MpesaReceiptNumber","Value":"R%[1]s"},{"Name":"PhoneNumber","Value":%[3]s}]}}}}`,
		checkoutID, amount, phone))
}

func stkFailure(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"m-%[1]s","CheckoutRequestID":"%[1]s","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`, checkoutID))
}
