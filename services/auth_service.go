package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/payments"
	"github.com/anjiri1684/liquidity/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	FullName     string
	Email        string
	Password     string
	PhoneNumber  string
	ReferralCode string
}

type LoginResult struct {
	Token   string              `json:"token"`
	User    *models.User        `json:"user"`
	Session *models.UserSession `json:"-"`
}

type AuthService struct {
	db        *gorm.DB
	wallet    *WalletService
	referrals *ReferralService
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, wallet *WalletService, referrals *ReferralService, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		db:        db,
		wallet:    wallet,
		referrals: referrals,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
	}
}

// Register creates the user, their empty wallet and, when a known referral
// code was supplied, a pending referral, all in one transaction. Unknown
// referral codes are ignored.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normaliseEmail(in.Email)

	var phone *string
	if strings.TrimSpace(in.PhoneNumber) != "" {
		sanitized, err := payments.SanitizeMpesaNumber(in.PhoneNumber)
		if err != nil {
			return nil, newError(ErrValidation, "Invalid phone number.")
		}
		phone = &sanitized
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return newError(ErrConflict, "Email already exists")
		}

		var referrer *models.User
		if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
			var r models.User
			err := tx.Where("referral_code = ?", code).First(&r).Error
			switch {
			case err == nil:
				referrer = &r
			case errors.Is(err, gorm.ErrRecordNotFound):
				s.log.Info("unknown referral code used at registration", zap.String("code", code))
			default:
				return err
			}
		}

		code, err := utils.GenerateUniqueReferralCode(tx)
		if err != nil {
			return err
		}

		user = models.User{
			FullName:     strings.TrimSpace(in.FullName),
			Email:        email,
			Password:     string(hashed),
			Role:         models.RoleUser,
			IsActive:     true,
			PhoneNumber:  phone,
			ReferralCode: &code,
		}
		if referrer != nil {
			user.ReferredByID = &referrer.ID
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(ErrConflict, "Email already exists")
			}
			return err
		}

		wallet, err := s.wallet.GetOrCreateWallet(tx, user.ID)
		if err != nil {
			return err
		}
		user.Wallet = wallet

		if referrer != nil {
			return s.referrals.Record(tx, referrer.ID, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password, device, ip string) (*LoginResult, error) {
	return s.login(ctx, email, password, device, ip, false)
}

// AdminLogin is Login restricted to admin accounts.
func (s *AuthService) AdminLogin(ctx context.Context, email, password, device, ip string) (*LoginResult, error) {
	return s.login(ctx, email, password, device, ip, true)
}

func (s *AuthService) login(ctx context.Context, email, password, device, ip string, requireAdmin bool) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normaliseEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}
	if !user.IsActive {
		return nil, newError(ErrForbidden, "Account is deactivated.")
	}
	if requireAdmin && !user.IsAdmin() {
		return nil, newError(ErrForbidden, "Admin access required.")
	}

	return s.startSession(ctx, &user, device, ip)
}

// SignInWithEmail signs in an externally verified email address, creating the
// account and its wallet on first use.
func (s *AuthService) SignInWithEmail(ctx context.Context, email, fullName, device, ip string) (*LoginResult, error) {
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		password, perr := utils.RandomToken(32)
		if perr != nil {
			return nil, perr
		}
		if fullName == "" {
			fullName = strings.Split(email, "@")[0]
		}
		created, rerr := s.Register(ctx, RegisterInput{FullName: fullName, Email: email, Password: password})
		if rerr != nil {
			return nil, rerr
		}
		user = *created
	case err != nil:
		return nil, err
	}

	if !user.IsActive {
		return nil, newError(ErrForbidden, "Account is deactivated.")
	}
	return s.startSession(ctx, &user, device, ip)
}

func (s *AuthService) startSession(ctx context.Context, user *models.User, device, ip string) (*LoginResult, error) {
	key, err := utils.RandomToken(40)
	if err != nil {
		return nil, err
	}

	session := models.UserSession{
		UserID:     user.ID,
		SessionKey: key,
		LoginTime:  s.now(),
		IsActive:   true,
	}
	if device != "" {
		session.Device = &device
	}
	if ip != "" {
		session.IPAddress = &ip
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken(s.jwtSecret, utils.TokenClaims{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: session.ID,
	}, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("session_id", session.ID.String()))
	return &LoginResult{Token: token, User: user, Session: &session}, nil
}

// Logout ends the session the token was issued for.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND is_active = ?", sessionID, userID, true).
		Updates(map[string]interface{}{"is_active": false, "logout_time": s.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(ErrNotFound, "Session not found or already ended.")
	}
	return nil
}

// SessionActive reports whether the session is still open and its user enabled.
func (s *AuthService) SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Joins("JOIN users ON users.id = user_sessions.user_id").
		Where("user_sessions.id = ? AND user_sessions.is_active = ? AND users.is_active = ?", sessionID, true, true).
		Count(&count).Error
	return count > 0, err
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Wallet").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "User not found.")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
