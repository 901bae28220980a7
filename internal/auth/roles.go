package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// RequireRole ensures the caller holds one of the allowed roles. The
// ticket service re-checks RBAC on top of this; the guard only keeps
// obvious violations off the service path.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return util.NewPermissionError("insufficient role")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return RequireRole()
}
