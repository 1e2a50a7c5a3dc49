package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/logpipe-io/logpipe/internal/auth"
	"github.com/logpipe-io/logpipe/internal/config"
	"github.com/logpipe-io/logpipe/internal/limiter"
	"github.com/logpipe-io/logpipe/internal/store"
	"github.com/logpipe-io/logpipe/internal/worker"
)

// Server holds the Echo app and the components it owns: the entry store,
// the admission controller, the token issuer, and the background worker.
// Everything is constructed here, not in package-level globals, so tests
// can build isolated instances.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	store  *store.Store
	worker *worker.Worker
	logger zerolog.Logger
}

// New builds the Echo server, wires middleware, and registers routes.
// Admission control runs before token validation on every route, the token
// issuance route included; rejected requests never touch the store.
func New(cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	// Rate-limit identity is the direct peer address. Forwarding headers
	// from untrusted clients must not vary it; deployments behind a known
	// proxy swap this for ExtractIPFromXFFHeader with trust ranges.
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(middleware.Recover(), middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
	}))

	// Shed excess load before anything else spends work on the request.
	lim := limiter.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	e.Use(lim.Middleware())

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	st := store.New()
	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.Subject)
	w := worker.New(st, worker.Config{
		Interval:        cfg.Worker.Interval,
		MaxMessageChars: cfg.Worker.MaxMessageChars,
		FailureRate:     cfg.Worker.FailureRate,
	}, logger.With().Str("component", "worker").Logger())

	h := &Handler{Store: st, Issuer: issuer, Logger: logger.With().Str("component", "http").Logger()}
	e.POST("/auth/token", h.IssueToken)
	e.POST("/logs", h.IngestLog, auth.RequireToken(issuer))
	e.GET("/logs/:correlationId", h.GetLog)
	e.GET("/metrics", h.Metrics)

	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	return &Server{Echo: e, Config: cfg, store: st, worker: w, logger: logger}
}

// Start runs the background worker and the HTTP listener. Blocks until the
// context is cancelled or the listener fails; on cancel, Shutdown stops the
// worker before closing the listener.
func (s *Server) Start(ctx context.Context) error {
	s.worker.Start(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	err := s.Echo.Start(":" + s.Config.Server.Port)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the worker, then the HTTP server. Stopping the worker
// first guarantees no tick is mid-entry while the process winds down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.worker.Stop()
	return s.Echo.Shutdown(ctx)
}
