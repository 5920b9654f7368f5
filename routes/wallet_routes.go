package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/gofiber/fiber/v2"
)

func WalletRoutes(app *fiber.App, wallet *handlers.WalletHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	api.Get("/wallet", protected, wallet.GetWallet)
	api.Get("/wallet/transactions", protected, wallet.Transactions)

	api.Get("/rentals", protected, wallet.Rentals)
	api.Get("/rentals/pending-returns", protected, wallet.PendingReturns)

	api.Get("/referrals", protected, wallet.Referrals)
	api.Get("/referrals/summary", protected, wallet.ReferralSummary)
}
