package database

import (
	"fmt"
	"strings"

	"github.com/anjiri1684/liquidity/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDB opens Postgres, or SQLite when the DSN starts with "sqlite:"
// (local development and tests).
func ConnectDB(dsn string) (*gorm.DB, error) {
	dialector := postgres.Open(dsn)
	if strings.HasPrefix(dsn, "sqlite:") {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// a single connection keeps in-memory databases shared and writes serialised
		sqlDB.SetMaxOpenConns(1)
	}

	DB = db
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.CurrencyProduct{},
		&models.MpesaPayment{},
		&models.Rental{},
		&models.Referral{},
		&models.Withdrawal{},
	)
}

// DefaultCurrencyProducts is the catalog the platform launched with; prices are in KES.
var DefaultCurrencyProducts = []models.CurrencyProduct{
	{Code: "CAD", Name: "Canadian Dollar", PriceKES: decimal.NewFromInt(100), Active: true},
	{Code: "AUD", Name: "Australian Dollar", PriceKES: decimal.NewFromInt(250), Active: true},
	{Code: "GBP", Name: "British Pound Sterling", PriceKES: decimal.NewFromInt(500), Active: true},
	{Code: "JPY", Name: "Japanese Yen", PriceKES: decimal.NewFromInt(750), Active: true},
	{Code: "EUR", Name: "Euro", PriceKES: decimal.NewFromInt(1000), Active: true},
	{Code: "USD", Name: "US Dollar", PriceKES: decimal.NewFromInt(1200), Active: true},
}

func SeedCurrencyProducts(db *gorm.DB, log *zap.Logger) error {
	for _, p := range DefaultCurrencyProducts {
		product := p
		var existing models.CurrencyProduct
		res := db.Where("code = ?", product.Code).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}
		if err := db.Create(&product).Error; err != nil {
			return fmt.Errorf("seed currency %s: %w", product.Code, err)
		}
		log.Info("seeded currency product", zap.String("code", product.Code))
	}
	return nil
}

// SeedAdmin creates the configured admin account, and its wallet, when missing.
func SeedAdmin(db *gorm.DB, email, password, fullName string, log *zap.Logger) error {
	if email == "" || password == "" {
		log.Warn("admin credentials not configured, skipping admin seed")
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}
	if count > 0 {
		log.Info("admin user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{
			ID:       uuid.New(),
			FullName: fullName,
			Email:    email,
			Password: string(hashedPassword),
			Role:     models.RoleAdmin,
			IsActive: true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		if err := tx.Create(&models.Wallet{UserID: admin.ID, Balance: decimal.Zero}).Error; err != nil {
			return err
		}
		log.Info("admin user seeded", zap.String("email", email))
		return nil
	})
}

// OpenInMemory returns a migrated, private in-memory SQLite database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := ConnectDB(fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
