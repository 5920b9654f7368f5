package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	mpesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionURL = "https://api.safaricom.co.ke"
)

var loadEnvOnce sync.Once

func Config(key string) string {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})

	return os.Getenv(key)
}

// MpesaConfig holds the Daraja credentials. Nothing time dependent lives here:
// the STK password and timestamp are derived per request.
type MpesaConfig struct {
	Environment    string
	BaseURL        string
	ShortCode      string
	Passkey        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
}

type RentalPolicy struct {
	Multiplier   int64
	DurationDays int
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type EmailConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

type AppConfig struct {
	Env             string
	Port            string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	TokenTTL        time.Duration
	FrontendBaseURL string
	CloudinaryURL   string
	ExchangeRateKey string

	AdminEmail    string
	AdminPassword string
	AdminFullName string

	Mpesa  MpesaConfig
	Rental RentalPolicy
	Google GoogleConfig
	Email  EmailConfig

	WithdrawalEscalateAfter time.Duration
}

func Load() *AppConfig {
	mpesaEnv := withDefault(Config("MPESA_ENV"), "production")
	baseURL := Config("MPESA_BASE_URL")
	if baseURL == "" {
		baseURL = mpesaProductionURL
		if mpesaEnv == "sandbox" {
			baseURL = mpesaSandboxURL
		}
	}

	return &AppConfig{
		Env:             withDefault(Config("APP_ENV"), "development"),
		Port:            withDefault(Config("PORT"), "8080"),
		DatabaseURL:     Config("DATABASE_URL"),
		RedisURL:        Config("REDIS_URL"),
		JWTSecret:       Config("JWT_SECRET"),
		TokenTTL:        time.Duration(intOr(Config("JWT_TTL_MINUTES"), 60)) * time.Minute,
		FrontendBaseURL: withDefault(Config("FRONTEND_BASE_URL"), "https://liquiinvestke.co.ke"),
		CloudinaryURL:   Config("CLOUDINARY_URL"),
		ExchangeRateKey: Config("EXCHANGE_RATE_API_KEY"),

		AdminEmail:    Config("ADMIN_EMAIL"),
		AdminPassword: Config("ADMIN_PASSWORD"),
		AdminFullName: Config("ADMIN_FULL_NAME"),

		Mpesa: MpesaConfig{
			Environment:    mpesaEnv,
			BaseURL:        baseURL,
			ShortCode:      Config("MPESA_SHORTCODE"),
			Passkey:        Config("MPESA_PASSKEY"),
			ConsumerKey:    Config("MPESA_CONSUMER_KEY"),
			ConsumerSecret: Config("MPESA_CONSUMER_SECRET"),
			CallbackURL:    Config("MPESA_CALLBACK_URL"),
		},
		Rental: RentalPolicy{
			Multiplier:   int64(intOr(Config("RENTAL_MULTIPLIER"), 2)),
			DurationDays: intOr(Config("RENTAL_DURATION_DAYS"), 20),
		},
		Google: GoogleConfig{
			ClientID:     Config("GOOGLE_CLIENT_ID"),
			ClientSecret: Config("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  Config("GOOGLE_REDIRECT_URL"),
		},
		Email: EmailConfig{
			APIKey:      Config("BREVO_API_KEY"),
			SenderEmail: Config("EMAIL_SENDER"),
			SenderName:  Config("EMAIL_SENDER_NAME"),
		},

		WithdrawalEscalateAfter: time.Duration(intOr(Config("WITHDRAWAL_ESCALATE_HOURS"), 48)) * time.Hour,
	}
}

func DefaultRentalPolicy() RentalPolicy {
	return RentalPolicy{Multiplier: 2, DurationDays: 20}
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
