package handlers

import (
	"errors"
	"math"

	"github.com/anjiri1684/liquidity/middleware"
	"github.com/anjiri1684/liquidity/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New()

// respondError maps service errors onto HTTP statuses. Unclassified errors are
// logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrInsufficientFunds):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrUpstream):
		status = fiber.StatusBadGateway
	}

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return c.Status(status).JSON(fiber.Map{"error": svcErr.Message})
	}

	log.Error("request failed", zap.String("path", c.Path()), zap.String("method", c.Method()), zap.Error(err))
	return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
}

var errBadJSON = errors.New("Cannot parse JSON")

// parseBody decodes and validates the JSON body into req.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errBadJSON
	}
	return validate.Struct(req)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func pageParams(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func paged(data interface{}, total int64, page, limit int) fiber.Map {
	return fiber.Map{
		"data": data,
		"meta": fiber.Map{
			"total":     total,
			"page":      page,
			"last_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	}
}

var errNoUser = errors.New("no authenticated user")

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": errNoUser.Error()})
}
