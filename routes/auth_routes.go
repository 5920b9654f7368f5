package routes

import (
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, auth *handlers.AuthHandler, google *handlers.GoogleAuthHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", auth.Register)
	authGroup.Post("/login", auth.Login)
	authGroup.Post("/admin-login", auth.AdminLogin)
	authGroup.Post("/logout", protected, auth.Logout)
	authGroup.Get("/google/start", google.Start)
	authGroup.Get("/google/callback", google.Callback)

	api.Get("/users/me", protected, auth.Me)
}
