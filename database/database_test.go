package database

import (
	"context"
	"testing"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type errorRecorder struct {
	errs []error
}

func (r *errorRecorder) LogMode(logger.LogLevel) logger.Interface { return r }

func (r *errorRecorder) Info(context.Context, string, ...interface{}) {}

func (r *errorRecorder) Warn(context.Context, string, ...interface{}) {}

func (r *errorRecorder) Error(context.Context, string, ...interface{}) {}

func (r *errorRecorder) Trace(_ context.Context, _ time.Time, _ func() (string, int64), err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func TestSeedCurrencyProductsIsRepeatable(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	require.NoError(t, SeedCurrencyProducts(db, zap.NewNop()))
	require.NoError(t, SeedCurrencyProducts(db, zap.NewNop()))

	var products []models.CurrencyProduct
	require.NoError(t, db.Order("price_kes asc").Find(&products).Error)
	require.Len(t, products, len(DefaultCurrencyProducts))
	require.Equal(t, "CAD", products[0].Code)
	require.Equal(t, "100", products[0].PriceKES.String())
	require.Equal(t, "USD", products[len(products)-1].Code)
}

func TestSeedAdminCreatesWallet(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	require.NoError(t, SeedAdmin(db, "admin@liquidity.test", "secret123", "Site Admin", zap.NewNop()))
	require.NoError(t, SeedAdmin(db, "admin@liquidity.test", "secret123", "Site Admin", zap.NewNop()))

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@liquidity.test").First(&admin).Error)
	require.True(t, admin.IsAdmin())

	var wallets int64
	require.NoError(t, db.Model(&models.Wallet{}).Where("user_id = ?", admin.ID).Count(&wallets).Error)
	require.Equal(t, int64(1), wallets)
}

func TestSeedCurrencyProductsQueriesWithoutErrors(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	recorder := &errorRecorder{}
	quiet := db.Session(&gorm.Session{Logger: recorder})

	require.NoError(t, SeedCurrencyProducts(quiet, zap.NewNop()))
	require.NoError(t, SeedCurrencyProducts(quiet, zap.NewNop()))
	require.Empty(t, recorder.errs)
}
