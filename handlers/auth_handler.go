package handlers

import (
	"github.com/anjiri1684/liquidity/middleware"
	"github.com/anjiri1684/liquidity/notifications"
	"github.com/anjiri1684/liquidity/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Mailer delivers transactional email in the background.
type Mailer interface {
	SendAsync(toName, toEmail, subject, htmlContent string)
}

type RegisterRequest struct {
	FullName     string `json:"full_name" validate:"required,min=3"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	PhoneNumber  string `json:"phone_number"`
	ReferralCode string `json:"referral_code"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	auth   *services.AuthService
	mailer Mailer
	log    *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, mailer Mailer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, mailer: mailer, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.auth.Register(c.UserContext(), services.RegisterInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Password:     req.Password,
		PhoneNumber:  req.PhoneNumber,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	subject, body := notifications.WelcomeEmail(user)
	h.mailer.SendAsync(user.FullName, user.Email, subject, body)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.auth.AdminLogin(c.UserContext(), req.Email, req.Password, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return unauthenticated(c)
	}
	if err := h.auth.Logout(c.UserContext(), claims.UserID, claims.SessionID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	user, err := h.auth.Profile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}
