// Package server is our own web server: it owns the session cookie and
// serves the server-side market pages as JSON.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/sudo-init-do/bazaar/internal/api"
	"github.com/sudo-init-do/bazaar/internal/auth"
	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/marketplace"
	"github.com/sudo-init-do/bazaar/internal/messaging"
	mware "github.com/sudo-init-do/bazaar/internal/middleware"
	"github.com/sudo-init-do/bazaar/internal/user"
)

type Options struct {
	Verifier identity.Verifier
	Market   *marketplace.Service
	Users    *user.Service
	Messages *messaging.Service
	Logger   *slog.Logger

	AppURL       string
	Production   bool
	CookieMaxAge time.Duration
	// RateLimit is requests per second per IP on the cookie endpoint.
	RateLimit int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	echo     *echo.Echo
	verifier identity.Verifier
	market   *marketplace.Service
	users    *user.Service
	messages *messaging.Service
	logger   *slog.Logger

	production   bool
	cookieMaxAge time.Duration
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = time.Hour
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}

	s := &Server{
		echo:         echo.New(),
		verifier:     opts.Verifier,
		market:       opts.Market,
		users:        opts.Users,
		messages:     opts.Messages,
		logger:       opts.Logger,
		production:   opts.Production,
		cookieMaxAge: opts.CookieMaxAge,
	}

	e := s.echo
	e.HideBanner = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	// Cookie side channel, rate limited per IP
	e.POST(api.UpdateAuthTokenPath, s.UpdateAuthToken,
		middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(opts.RateLimit))),
		mware.SameOrigin(opts.AppURL),
	)

	pages := e.Group("")
	pages.Use(mware.Session(opts.Verifier, opts.Logger))

	pages.GET("/api/session", s.GetSession)
	pages.GET("/api/me", s.GetMe, mware.RequireSession)

	pages.GET("/market", s.GetFeed)
	pages.GET("/market/listings/:id", s.GetListing)
	pages.GET("/market/users/:id", s.GetUserProfile)
	pages.GET("/market/orders", s.GetOrders)
	pages.GET("/market/orders/:id", s.GetOrder)
	pages.GET("/market/messages", s.GetConversations)
	pages.GET("/market/messages/:userId", s.GetThread)

	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// fail maps service errors onto responses. Unauthenticated page requests
// get the sign-in path to redirect to.
func (s *Server) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrNotAuthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error":    "not authenticated",
			"redirect": auth.SignInPath(c.Request().URL.RequestURI()),
		})
	case errors.Is(err, api.ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "backend timed out"})
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		s.logger.Warn("backend call failed", "path", c.Path(), "status", se.Status)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "backend error"})
	}
	s.logger.Error("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
