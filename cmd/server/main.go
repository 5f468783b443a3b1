package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sudo-init-do/bazaar/internal/api"
	"github.com/sudo-init-do/bazaar/internal/config"
	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/marketplace"
	"github.com/sudo-init-do/bazaar/internal/messaging"
	"github.com/sudo-init-do/bazaar/internal/server"
	"github.com/sudo-init-do/bazaar/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		logger.Error("failed to init token verifier", "mode", cfg.Identity.Mode, "error", err)
		os.Exit(1)
	}

	// Page handlers act on behalf of the cookie holder, whose principal the
	// session middleware puts on the request context.
	resolver := identity.ContextResolver{}
	backend := api.New(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout), api.WithLogger(logger))

	srv := server.New(server.Options{
		Verifier: verifier,
		Market: marketplace.NewService(marketplace.NewClient(backend), resolver,
			marketplace.WithImagePolicy(marketplace.ImagePolicy{Hosts: cfg.Images.Hosts}),
			marketplace.WithLogger(logger),
		),
		Users:        user.NewService(user.NewClient(backend), resolver),
		Messages:     messaging.NewService(messaging.NewClient(backend), resolver),
		Logger:       logger,
		AppURL:       cfg.AppURL,
		Production:   cfg.Server.Production,
		CookieMaxAge: cfg.Server.CookieMaxAge,
		RateLimit:    cfg.Server.RateLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "backend", cfg.API.BaseURL, "identity", cfg.Identity.Mode)
		if err := srv.Start(":" + cfg.Server.Port); err != nil {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (identity.Verifier, error) {
	if cfg.Identity.Mode == "local" {
		return identity.NewLocalVerifier(cfg.Identity.JWTSecret), nil
	}
	return identity.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID)
}
