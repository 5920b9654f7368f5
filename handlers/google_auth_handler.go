package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "github.com/anjiri1684/liquidity/configs"
	"github.com/anjiri1684/liquidity/services"
	"github.com/anjiri1684/liquidity/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie = "oauth_state"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type googleProfile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleAuthHandler signs users in with Google and hands the issued token to
// the frontend through a redirect.
type GoogleAuthHandler struct {
	auth        *services.AuthService
	oauth       *oauth2.Config
	frontendURL string
	log         *zap.Logger

	// fetchProfile is replaced in tests.
	fetchProfile func(ctx context.Context, code string) (*googleProfile, error)
}

func NewGoogleAuthHandler(auth *services.AuthService, cfg config.GoogleConfig, frontendURL string, log *zap.Logger) *GoogleAuthHandler {
	h := &GoogleAuthHandler{
		auth: auth,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
	h.fetchProfile = h.exchangeProfile
	return h
}

func (h *GoogleAuthHandler) Start(c *fiber.Ctx) error {
	if h.oauth.ClientID == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Google sign-in is not configured"})
	}

	state, err := utils.RandomToken(32)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start Google sign-in"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   10 * 60,
	})
	return c.Redirect(h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *GoogleAuthHandler) Callback(c *fiber.Ctx) error {
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing code or state"})
	}
	if cookie := c.Cookies(oauthStateCookie); cookie == "" || cookie != state {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid state"})
	}
	c.Cookie(&fiber.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HTTPOnly: true, SameSite: "Lax"})

	profile, err := h.fetchProfile(c.UserContext(), code)
	if err != nil {
		h.log.Warn("google sign-in failed", zap.Error(err))
		return c.Redirect(h.frontendURL+"/login?error="+url.QueryEscape("Google sign-in failed"), http.StatusTemporaryRedirect)
	}
	if !profile.VerifiedEmail {
		return c.Redirect(h.frontendURL+"/login?error="+url.QueryEscape("Google email is not verified"), http.StatusTemporaryRedirect)
	}

	result, err := h.auth.SignInWithEmail(c.UserContext(), profile.Email, profile.Name, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		msg := "Google sign-in failed"
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			msg = svcErr.Message
		} else {
			h.log.Error("google sign-in failed", zap.String("email", profile.Email), zap.Error(err))
		}
		return c.Redirect(h.frontendURL+"/login?error="+url.QueryEscape(msg), http.StatusTemporaryRedirect)
	}

	return c.Redirect(h.frontendURL+"/auth/callback?token="+url.QueryEscape(result.Token), http.StatusTemporaryRedirect)
}

func (h *GoogleAuthHandler) exchangeProfile(ctx context.Context, code string) (*googleProfile, error) {
	tok, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := h.oauth.Client(ctx, tok).Get(googleUserInfo)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if strings.TrimSpace(profile.Email) == "" {
		return nil, errors.New("userinfo has no email")
	}
	return &profile, nil
}
