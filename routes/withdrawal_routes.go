package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/gofiber/fiber/v2"
)

func WithdrawalRoutes(app *fiber.App, withdrawal *handlers.WithdrawalHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	api.Post("/withdrawals/request", protected, withdrawal.Request)
	api.Post("/withdraw", protected, withdrawal.Request)
	api.Get("/withdrawals/history", protected, withdrawal.History)
}
