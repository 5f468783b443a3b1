package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sudo-init-do/bazaar/internal/config"
	"github.com/sudo-init-do/bazaar/internal/devbackend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	if cfg.Identity.Mode != "local" {
		logger.Error("devbackend mints its own tokens; set IDENTITY_MODE=local and JWT_SECRET")
		os.Exit(1)
	}
	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	backend := devbackend.New(cfg.Identity.JWTSecret, devbackend.WithLogger(logger))
	srv := &http.Server{
		Addr:         ":" + cfg.DevBackendPort,
		Handler:      backend.Router([]string{cfg.AppURL}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("devbackend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("devbackend error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("devbackend shutdown failed", "error", err)
	}
}
