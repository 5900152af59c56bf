package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles known to the clinic. MEDECIN is the doctor role.
const (
	RoleAdmin   = "ADMIN"
	RoleMedecin = "MEDECIN"
	RolePatient = "PATIENT"
)

// RequireRole returns middleware that checks if the caller has one of the
// given roles. ADMIN always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireStaff restricts a route to ADMIN and MEDECIN callers.
func RequireStaff() echo.MiddlewareFunc {
	return RequireRole(RoleAdmin, RoleMedecin)
}

// IsStaff reports whether the context caller holds a staff role.
func IsStaff(ctx context.Context) bool {
	role := RoleFromContext(ctx)
	return role == RoleAdmin || role == RoleMedecin
}

// ValidRole reports whether role is one of the known role values.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMedecin || role == RolePatient
}
