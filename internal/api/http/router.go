package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/http/handlers"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Guest          *handlers.GuestHandler
	Assignments    *handlers.AssignmentHandler
	Users          *handlers.UsersHandler
	Organizations  *handlers.OrganizationsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public channel: guest submission and tracking.
	guest := app.Group("/guest")
	guest.Post("/complaints", cfg.Guest.Submit)
	guest.Get("/complaints/:token", cfg.Guest.Track)
	guest.Post("/complaints/:token/feedback", cfg.Guest.Feedback)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	authProtected.Get("/me", cfg.Auth.Me)
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Post("/password/change", cfg.Auth.ChangePassword)

	complaints := app.Group("/complaints", cfg.AuthMiddleware.Handle, auth.RequireRole())
	complaints.Post("", auth.RequireConsumer(), cfg.Complaints.Create)
	complaints.Post("/on-behalf", auth.RequireStaff(), cfg.Complaints.CreateOnBehalf)
	complaints.Get("", cfg.Complaints.List)
	complaints.Get("/:id", cfg.Complaints.Get)
	complaints.Put("/:id", auth.RequireConsumer(), cfg.Complaints.Update)
	complaints.Delete("/:id", auth.RequireConsumer(), cfg.Complaints.Delete)
	complaints.Patch("/:id/status", auth.RequireStaff(), cfg.Complaints.UpdateStatus)
	complaints.Post("/:id/feedback", auth.RequireConsumer(), cfg.Complaints.SubmitFeedback)
	complaints.Get("/:id/history", cfg.Complaints.History)

	complaints.Post("/:id/assign", auth.RequireStaff(), cfg.Assignments.Assign)
	complaints.Post("/:id/auto-assign", auth.RequireStaff(), cfg.Assignments.AutoAssign)
	complaints.Post("/:id/escalate", auth.RequireStaff(), cfg.Assignments.Escalate)
	complaints.Post("/:id/reassign", auth.RequireStaff(), cfg.Assignments.Reassign)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(
		domain.RoleHelpdeskManager,
		domain.RoleOrganizationAdmin,
		domain.RoleSystemAdmin,
	))
	admin.Post("/users", cfg.Users.Create)
	admin.Get("/users", cfg.Users.List)
	admin.Get("/users/:id", cfg.Users.Get)
	admin.Put("/users/:id", cfg.Users.Update)
	admin.Patch("/users/:id/active", cfg.Users.SetActive)
	admin.Delete("/users/:id", cfg.Users.Delete)

	admin.Post("/organizations", cfg.Organizations.Create)
	admin.Get("/organizations", cfg.Organizations.List)
	admin.Get("/organizations/:id", cfg.Organizations.Get)
	admin.Patch("/organizations/:id/status", cfg.Organizations.SetStatus)
	admin.Put("/organizations/:id/settings", cfg.Organizations.UpdateSettings)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	stats.Get("/overview", cfg.Stats.Overview)
}
