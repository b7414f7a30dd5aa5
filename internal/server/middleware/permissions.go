package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// Permission names one kind of access to the resolved data.
type Permission string

const (
	ViewYears     Permission = "years.view"
	ViewSnapshots Permission = "snapshots.view"
	CreateJobs    Permission = "jobs.create"
)

var allPermissions = []Permission{ViewYears, ViewSnapshots, CreateJobs}

// parsePermissions keeps the known permission names of a token claim.
// Unknown names are dropped.
func parsePermissions(claim any) []Permission {
	list, ok := claim.([]any)
	if !ok {
		return nil
	}
	var out []Permission
	for _, v := range list {
		name, ok := v.(string)
		if !ok {
			continue
		}
		if p := Permission(name); slices.Contains(allPermissions, p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// Can reports whether the user holds p.
func (u *AppUser) Can(p Permission) bool {
	return u != nil && slices.Contains(u.Permissions, p)
}

// RequirePermission answers 401 to anonymous callers and 403 to callers
// lacking p.
func RequirePermission(p Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc, ok := c.(*AppContext)
			if !ok || cc.User == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if !cc.User.Can(p) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "caller " + cc.User.Subject + " may not use " + c.Path() + " without " + string(p),
				})
			}
			return next(c)
		}
	}
}
