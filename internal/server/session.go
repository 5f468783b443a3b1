package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/bazaar/internal/identity"
	mware "github.com/sudo-init-do/bazaar/internal/middleware"
)

type updateAuthTokenRequest struct {
	Token *string `json:"token"`
}

// POST /api/update-auth-token
func (s *Server) UpdateAuthToken(c echo.Context) error {
	var req updateAuthTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if req.Token == nil || *req.Token == "" {
		c.SetCookie(s.sessionCookie("", -1))
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}

	verified, err := s.verifier.Verify(c.Request().Context(), *req.Token)
	if err != nil {
		s.logger.Warn("rejected session token", "error", err)
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid token"})
	}

	c.SetCookie(s.sessionCookie(*req.Token, int(s.cookieMaxAge.Seconds())))
	s.logger.Debug("session cookie updated", "uid", verified.UID)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     mware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteStrictMode,
	}
}

// GET /api/session
func (s *Server) GetSession(c echo.Context) error {
	p := identity.FromContext(c.Request().Context())
	if p == nil {
		return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": true,
		"user_id":       p.UID(),
		"email":         p.Email(),
	})
}

// GET /api/me
func (s *Server) GetMe(c echo.Context) error {
	me, err := s.users.Me(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, me)
}
