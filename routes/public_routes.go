package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, payment *handlers.PaymentHandler) {
	api := app.Group("/api/v1")

	api.Get("/currencies", payment.Currencies)
}
