package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-pilot/internal/api/http/handlers"
	"github.com/spec-kit/support-pilot/internal/auth"
	"github.com/spec-kit/support-pilot/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Turns          *handlers.TurnsHandler
	Tickets        *handlers.TicketsHandler
	Metrics        *handlers.MetricsHandler
	Sessions       *handlers.SessionsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Auth.IssueToken)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Post("/turns", cfg.Turns.HandleTurn)

	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)

	agentOnly := protected.Group("", auth.RequireRole(domain.RoleServiceDeskAgent))
	agentOnly.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	agentOnly.Patch("/tickets/:id/priority", cfg.Tickets.DowngradePriority)
	agentOnly.Get("/metrics", cfg.Metrics.GetMetrics)
	agentOnly.Post("/metrics/reset", cfg.Metrics.ResetMetrics)
	agentOnly.Post("/sessions/:user_id/reset", cfg.Sessions.ResetSession)
}
