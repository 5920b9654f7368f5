package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/anjiri1684/liquidity/middleware"
	"github.com/anjiri1684/liquidity/websocket"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Google     *handlers.GoogleAuthHandler
	Payment    *handlers.PaymentHandler
	Wallet     *handlers.WalletHandler
	Withdrawal *handlers.WithdrawalHandler
	Admin      *handlers.AdminHandler
	Upload     *handlers.UploadHandler
	Hub        *websocket.Hub
}

// Setup mounts every route. protected must reject requests without a live session.
func Setup(app *fiber.App, h Handlers, jwtSecret string, sessions middleware.SessionChecker) {
	protected := middleware.Protected(jwtSecret, sessions)

	PublicRoutes(app, h.Payment)
	AuthRoutes(app, h.Auth, h.Google, protected)
	PaymentRoutes(app, h.Payment, protected)
	WalletRoutes(app, h.Wallet, protected)
	WithdrawalRoutes(app, h.Withdrawal, protected)
	UploadRoutes(app, h.Upload, protected)
	AdminRoutes(app, h.Admin, h.Withdrawal, protected)

	app.Get("/ws/wallet", websocket.Upgrade(), h.Hub.WalletHandler(jwtSecret))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
