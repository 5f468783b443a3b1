package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

// SessionCookie mirrors the browser's current ID token.
const SessionCookie = "FIREBASE_ID_TOKEN"

// Session resolves the caller from the session cookie, falling back to a
// bearer token when the cookie is missing or fails verification. With no
// valid token the request stays anonymous.
// On success the principal is attached to the request context and
// "user_id" is set on the echo context.
func Session(verifier identity.Verifier, logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var candidates []string
			if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				candidates = append(candidates, cookie.Value)
			}
			if bearer := identity.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); bearer != "" {
				candidates = append(candidates, bearer)
			}

			// a stale cookie must not hide a valid bearer token
			var verified *identity.VerifiedToken
			var token string
			for _, candidate := range candidates {
				v, err := verifier.Verify(c.Request().Context(), candidate)
				if err != nil {
					logger.Debug("ignoring invalid session token", "error", err)
					continue
				}
				verified, token = v, candidate
				break
			}
			if verified == nil {
				return next(c)
			}

			p := identity.NewTokenPrincipal(verified.UID, verified.Email, token)
			req := c.Request()
			c.SetRequest(req.WithContext(identity.WithPrincipal(req.Context(), p)))
			c.Set("user_id", verified.UID)
			c.Set("email", verified.Email)
			return next(c)
		}
	}
}

// RequireSession rejects anonymous requests.
func RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := c.Get("user_id").(string)
		if !ok || userID == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "not authenticated"})
		}
		return next(c)
	}
}
