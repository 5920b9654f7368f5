package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenClaims are carried by every access token.
type TokenClaims struct {
	UserID    uuid.UUID
	Role      string
	SessionID uuid.UUID
}

func GenerateToken(secret string, claims TokenClaims, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID.String(),
		"role":    claims.Role,
		"sid":     claims.SessionID.String(),
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates an HS256 token outside the fiber middleware, e.g. on a
// websocket query parameter.
func ParseToken(secret, raw string) (*TokenClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return ClaimsFromMap(mc)
}

func ClaimsFromMap(mc jwt.MapClaims) (*TokenClaims, error) {
	rawID, _ := mc["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errors.New("invalid user_id claim")
	}

	claims := &TokenClaims{UserID: userID}
	claims.Role, _ = mc["role"].(string)
	if sid, ok := mc["sid"].(string); ok {
		claims.SessionID, _ = uuid.Parse(sid)
	}
	return claims, nil
}
