package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/anjiri1684/liquidity/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, admin *handlers.AdminHandler, withdrawal *handlers.WithdrawalHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	adminGroup := api.Group("/admin", protected, middleware.AdminRequired())

	adminGroup.Get("/dashboard", admin.Dashboard)
	adminGroup.Get("/users", admin.ListUsers)
	adminGroup.Put("/users/:id/status", admin.SetUserStatus)
	adminGroup.Get("/payments", admin.ListPayments)

	reports := adminGroup.Group("/reports")
	reports.Get("/transactions", admin.TransactionReport)

	withdrawals := adminGroup.Group("/withdrawals")
	withdrawals.Get("", withdrawal.AdminList)
	withdrawals.Get("/:id", withdrawal.AdminGet)
	withdrawals.Post("/:id/approve", withdrawal.Approve)
	withdrawals.Post("/:id/reject", withdrawal.Reject)

	currencies := adminGroup.Group("/currencies")
	currencies.Get("", admin.ListCurrencies)
	currencies.Post("", admin.CreateCurrency)
	currencies.Put("/:id", admin.UpdateCurrency)
	currencies.Delete("/:id", admin.DeleteCurrency)
}
