package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/domain"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles. With no
// arguments it only checks that a principal is present.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff ensures the principal holds any staff or admin role.
func RequireStaff() fiber.Handler {
	return RequireRole(
		domain.RoleHelpdeskAgent,
		domain.RoleSupportPerson,
		domain.RoleHelpdeskManager,
		domain.RoleOrganizationAdmin,
		domain.RoleSystemAdmin,
	)
}

// RequireConsumer ensures a consumer is authenticated.
func RequireConsumer() fiber.Handler {
	return RequireRole(domain.RoleConsumer)
}
