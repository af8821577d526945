package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/petcare-identity/internal/api/http/handlers"
	"github.com/spec-kit/petcare-identity/internal/auth"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Registrations  *handlers.RegistrationsHandler
	Admin          *handlers.AdminHandler
	Directory      *handlers.DirectoryHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// Route binds one endpoint to the permission that guards it.
type Route struct {
	Method     string
	Path       string
	Permission auth.Permission
	Handler    fiber.Handler
}

var directoryRoles = []domain.Role{
	domain.RoleVeterinarian,
	domain.RoleTrainer,
	domain.RoleHospital,
	domain.RoleClinic,
	domain.RoleAdmin,
}

// Routes is the route table. Every endpoint states its permission here and
// nowhere else.
func Routes(cfg RouteConfig) []Route {
	public := auth.Public()
	anyone := auth.AuthenticatedAny()
	admin := auth.RoleIn(domain.RoleAdmin)

	return []Route{
		{fiber.MethodGet, "/health/live", public, cfg.Health.Live},
		{fiber.MethodGet, "/health/ready", public, cfg.Health.Ready},

		{fiber.MethodPost, "/auth/login", public, cfg.Auth.Login},
		{fiber.MethodPost, "/auth/admin-login", public, cfg.Auth.AdminLogin},
		{fiber.MethodPost, "/auth/logout", anyone, cfg.Auth.Logout},
		{fiber.MethodGet, "/auth/profile", anyone, cfg.Auth.Profile},
		{fiber.MethodPut, "/auth/profile", anyone, cfg.Auth.UpdateProfile},
		{fiber.MethodPost, "/auth/change-password", anyone, cfg.Auth.ChangePassword},
		{fiber.MethodGet, "/auth/verify-token", anyone, cfg.Auth.VerifyToken},

		{fiber.MethodGet, "/registrations/availability", public, cfg.Registrations.Availability},
		{fiber.MethodPost, "/registrations/:role", public, cfg.Registrations.Submit},

		{fiber.MethodGet, "/admin/registrations", admin, cfg.Admin.ListRegistrations},
		{fiber.MethodGet, "/admin/registrations/:id", admin, cfg.Admin.GetRegistration},
		{fiber.MethodPost, "/admin/registrations/:id/review", admin, cfg.Admin.ReviewRegistration},
		{fiber.MethodPost, "/admin/registrations/:id/approve", admin, cfg.Admin.ApproveRegistration},
		{fiber.MethodPost, "/admin/registrations/:id/reject", admin, cfg.Admin.RejectRegistration},
		{fiber.MethodGet, "/admin/identities", admin, cfg.Admin.ListIdentities},
		{fiber.MethodPost, "/admin/identities/status", admin, cfg.Admin.BulkSetStatus},
		{fiber.MethodGet, "/admin/identities/:id", admin, cfg.Admin.GetIdentity},
		{fiber.MethodPut, "/admin/identities/:id/status", admin, cfg.Admin.SetStatus},
		{fiber.MethodPut, "/admin/identities/:id/verification", admin, cfg.Admin.SetVerification},
		{fiber.MethodDelete, "/admin/identities/:id", admin, cfg.Admin.DeleteIdentity},
		{fiber.MethodGet, "/admin/stats", admin, cfg.Admin.Stats},

		{fiber.MethodGet, "/api/providers", public, cfg.Directory.Providers},
		{fiber.MethodGet, "/api/identities/:identityId", auth.OwnerOrRole("identityId", domain.RoleAdmin), cfg.Directory.Identity},
		{fiber.MethodGet, "/api/pet-owners", auth.RoleIn(directoryRoles...), cfg.Directory.PetOwners},
	}
}

// RegisterRoutes wires HTTP routes. Token resolution runs for every request;
// each route's guard then applies its permission.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	app.Use(cfg.AuthMiddleware.Authenticate)

	for _, r := range Routes(cfg) {
		app.Add(r.Method, r.Path, auth.Guard(r.Permission), r.Handler)
	}
}
