package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom-service/internal/domain"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// RequireWorker ensures the caller holds the worker role. Every package
// mutation, recipient operation and tracking validation goes through this
// gate before reaching a service.
func RequireWorker() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != domain.RoleWorker {
			return apperrors.NewForbidden("worker role required")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures any principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// Permissions is the fixed capability matrix surfaced to the front end.
type Permissions struct {
	Packages   ResourcePermissions `json:"packages"`
	Recipients ResourcePermissions `json:"recipients"`
	UserType   domain.Role         `json:"userType"`
}

// ResourcePermissions flags per-operation access for one resource.
type ResourcePermissions struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// PermissionsFor returns the capability matrix for a role. Workers get full
// access; students only read their own packages.
func PermissionsFor(role domain.Role) Permissions {
	isWorker := role == domain.RoleWorker
	return Permissions{
		Packages: ResourcePermissions{
			Create: isWorker,
			Read:   true,
			Update: isWorker,
			Delete: isWorker,
		},
		Recipients: ResourcePermissions{
			Create: isWorker,
			Read:   isWorker,
			Update: isWorker,
			Delete: isWorker,
		},
		UserType: role,
	}
}
