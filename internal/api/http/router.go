package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom-service/internal/api/http/handlers"
	"github.com/spec-kit/mailroom-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Packages       *handlers.PackagesHandler
	Recipients     *handlers.RecipientsHandler
	Tracking       *handlers.TrackingHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Worker-only routes pass through the auth
// middleware and the worker role guard before reaching a handler.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/permissions", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.Permissions)

	packages := api.Group("/packages", cfg.AuthMiddleware.Handle)
	packages.Get("/my-packages", auth.RequireAuthenticated(), cfg.Packages.ListMine)
	packages.Get("/stats", auth.RequireWorker(), cfg.Packages.Stats)
	packages.Get("/", auth.RequireWorker(), cfg.Packages.List)
	packages.Post("/", auth.RequireWorker(), cfg.Packages.CheckIn)
	packages.Put("/:id", auth.RequireWorker(), cfg.Packages.Update)
	packages.Patch("/:id/checkout", auth.RequireWorker(), cfg.Packages.CheckOut)
	packages.Delete("/:id", auth.RequireWorker(), cfg.Packages.Delete)
	packages.Post("/:id/notify", auth.RequireWorker(), cfg.Packages.Notify)

	recipients := api.Group("/recipients", cfg.AuthMiddleware.Handle, auth.RequireWorker())
	recipients.Get("/", cfg.Recipients.List)
	recipients.Post("/", cfg.Recipients.Create)
	recipients.Put("/:id", cfg.Recipients.Update)
	recipients.Delete("/:id", cfg.Recipients.Delete)

	tracking := api.Group("/tracking/usps")
	tracking.Get("/check-format/:trackingNumber", cfg.Tracking.CheckFormat)
	tracking.Post("/validate", cfg.AuthMiddleware.Handle, auth.RequireWorker(), cfg.Tracking.Validate)
	tracking.Get("/status", cfg.AuthMiddleware.Handle, auth.RequireWorker(), cfg.Tracking.Status)
}
