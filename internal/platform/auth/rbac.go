package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ScopeOutboundTranslate authorises POST /api/v1/outbound/patient.
const ScopeOutboundTranslate = "outbound:translate"

// RequireScope returns middleware that checks the bearer token granted the
// required scope. Scopes are "area:action"; "area:*" and "*" are wildcards.
func RequireScope(required string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, scope := range ScopesFromContext(c.Request().Context()) {
				if matchScope(scope, required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required scope: %s", required))
		}
	}
}

func matchScope(granted, required string) bool {
	if granted == required || granted == "*" {
		return true
	}

	gArea, gAction, ok := strings.Cut(granted, ":")
	if !ok {
		return false
	}
	rArea, _, ok := strings.Cut(required, ":")
	if !ok {
		return false
	}
	return gArea == rArea && gAction == "*"
}
