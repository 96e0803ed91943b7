package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/config"
	"github.com/ehr/gateway/internal/itk"
	"github.com/ehr/gateway/internal/outbound"
	"github.com/ehr/gateway/internal/platform/auth"
	"github.com/ehr/gateway/internal/platform/db"
	"github.com/ehr/gateway/internal/platform/middleware"
	"github.com/ehr/gateway/internal/sequence"
)

const version = "0.1.0"

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() && !cfg.AuthEnabled() {
		logger.Warn().Msg("AUTH_SIGNING_KEY is not set; /api/v1 accepts unauthenticated requests")
	}

	ctx := context.Background()
	backend, err := openSequenceBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.SequenceBackend).Msg("failed to open sequence backend")
	}
	defer backend.close()

	e, err := newServer(cfg, logger, backend)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", backend.name).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires the HTTP surface over an opened sequence backend.
func newServer(cfg *config.Config, logger zerolog.Logger, backend *sequenceBackend) (*echo.Echo, error) {
	renderer, err := itk.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	validator := itk.NewValidator(renderer, logger)

	translator := outbound.NewInterchangeTranslator(
		sequence.NewGenerators(backend.counter, logger),
		outbound.NewRegistrationMessageTranslator(),
		nil,
		logger,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(backend.name, backend.ping, backend.pool))

	itk.NewHandler(validator).RegisterRoutes(e)

	apiV1 := e.Group("/api/v1")
	if cfg.AuthEnabled() {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.AuthSigningKey)}))
		apiV1.Use(auth.RequireScope(auth.ScopeOutboundTranslate))
	}
	outbound.NewHandler(translator, cfg.RequestTimeout).RegisterRoutes(apiV1)

	return e, nil
}
