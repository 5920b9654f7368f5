package middleware

import (
	"context"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/utils"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const claimsKey = "claims"

// SessionChecker reports whether a login session is still open.
type SessionChecker func(ctx context.Context, sessionID uuid.UUID) (bool, error)

// Protected validates the bearer token and, when sessions is non-nil, rejects
// tokens whose session was ended by logout or account deactivation.
func Protected(secret string, sessions SessionChecker) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			mc, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c)
			}
			claims, err := utils.ClaimsFromMap(mc)
			if err != nil {
				return unauthorized(c)
			}

			if sessions != nil && claims.SessionID != uuid.Nil {
				active, err := sessions(c.UserContext(), claims.SessionID)
				if err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify session"})
				}
				if !active {
					return unauthorized(c)
				}
			}

			c.Locals(claimsKey, claims)
			return c.Next()
		},
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return unauthorized(c)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := CurrentClaims(c)
		if !ok || claims.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

// CurrentClaims returns the claims stored by Protected.
func CurrentClaims(c *fiber.Ctx) (*utils.TokenClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*utils.TokenClaims)
	return claims, ok
}
