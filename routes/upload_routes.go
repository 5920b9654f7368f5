package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App, upload *handlers.UploadHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	api.Post("/uploads/signature", protected, upload.Signature)
}
