package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, payment *handlers.PaymentHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	api.Post("/payments/mpesa/callback", payment.MpesaCallback)

	api.Post("/payments/stkpush", protected, payment.InitiateSTKPush)
	api.Get("/payments/history", protected, payment.History)
}
