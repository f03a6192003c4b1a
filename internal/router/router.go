package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/nerus-go-api/internal/config"
	"github.com/noah-isme/nerus-go-api/internal/handler"
	"github.com/noah-isme/nerus-go-api/internal/middleware"
	"github.com/noah-isme/nerus-go-api/internal/observability"
	"github.com/noah-isme/nerus-go-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SolutionHandler *handler.SolutionHandler
	AIAdminHandler  *handler.AIAdminHandler
	Analysis        service.AnalysisService
	JWTMiddleware   fiber.Handler
	SubmitLimiter   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Analysis))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SolutionHandler != nil {
		problems := api.Group("/problems", jwtMiddleware)
		deps.SolutionHandler.RegisterSubmissions(problems, deps.SubmitLimiter)

		solutions := api.Group("/solutions", jwtMiddleware)
		deps.SolutionHandler.Register(solutions)
	}

	if deps.AIAdminHandler != nil {
		api.Get("/ai/health", deps.AIAdminHandler.Health)

		admin := api.Group("/ai", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleAdmin, middleware.AuthRoleCompany))
		deps.AIAdminHandler.Register(admin)
	}
}
