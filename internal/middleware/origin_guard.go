package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// SameOrigin rejects cross-site requests to state-changing endpoints. A
// request without an Origin header (non-browser clients) is let through.
// Usage: route(..., SameOrigin("https://app.example.com"))
func SameOrigin(allowed ...string) echo.MiddlewareFunc {
	origins := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			origins[strings.ToLower(u.Scheme+"://"+u.Host)] = true
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" {
				return next(c)
			}
			if origins[strings.ToLower(origin)] {
				return next(c)
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, c.Request().Host) {
				return next(c)
			}
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "cross-site request rejected"})
		}
	}
}
