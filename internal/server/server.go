// Package server wires storage, services and transports into a runnable
// famsplit HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/robfig/cron/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/calculator"
	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/internal/invite"
	"github.com/mmynk/famsplit/internal/mail"
	"github.com/mmynk/famsplit/internal/middleware"
	"github.com/mmynk/famsplit/internal/notify"
	"github.com/mmynk/famsplit/internal/service"
	"github.com/mmynk/famsplit/internal/storage/sqlite"
)

// rateLimitIdle is how long a client IP is remembered by the limiter.
const rateLimitIdle = 10 * time.Minute

// Server owns every long-lived component. Build it with New, serve with
// Run, and release it with Close.
type Server struct {
	cfg        *config.Config
	store      *sqlite.SQLiteStore
	registry   *events.Registry
	limiter    *middleware.RateLimiter
	jwtManager *auth.JWTManager
	scheduler  *cron.Cron
	handler    http.Handler
	logger     *slog.Logger
}

// New opens the store (running migrations) and builds the services,
// router and sweep scheduler. The scheduler starts with Run.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	flat, err := calculator.ParseFlatTable(cfg.FlatOverrides)
	if err != nil {
		return nil, fmt.Errorf("flat overrides: %w", err)
	}
	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("Storage initialized", "database", cfg.DBPath)

	s := &Server{
		cfg:        cfg,
		store:      store,
		registry:   events.NewRegistry(cfg.Events.MaxSubscribers),
		limiter:    middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}),
		jwtManager: auth.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL),
		scheduler:  cron.New(),
		logger:     logger,
	}

	invites := invite.NewService(store, mailer, cfg.Invite, logger, invite.WithPublisher(s.registry))
	dispatcher := notify.NewDispatcher(store, mailer, s.registry, logger)
	allocation := service.Allocation{Mode: cfg.AllocationMode, Flat: flat}

	s.handler = s.routes(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), s.jwtManager, store, logger),
		service.NewFamilyService(store, invites, s.jwtManager, logger),
		service.NewBillService(store, dispatcher, s.registry, allocation, logger),
		service.NewEventService(s.registry, logger),
	)

	if _, err := s.scheduler.AddFunc(cfg.Events.SweepSchedule, s.sweep); err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Events.SweepSchedule, err)
	}

	return s, nil
}

// Handler returns the root HTTP handler, including h2c support.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.handler, &http2.Server{})
}

// Registry exposes the live event registry.
func (s *Server) Registry() *events.Registry {
	return s.registry
}

// sweep drops idle event subscribers and forgotten rate-limit clients.
func (s *Server) sweep() {
	expired := s.registry.ExpireIdle(s.cfg.Events.IdleTimeout)
	forgotten := s.limiter.Sweep(rateLimitIdle)
	if expired > 0 || forgotten > 0 {
		s.logger.Info("Sweep finished", "expired_subscribers", expired, "forgotten_clients", forgotten)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// releases every component.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Connect server starting", "address", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	s.logger.Info("Shutting down")
	// Ending live streams first lets Shutdown drain instead of waiting on them.
	s.registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	return errors.Join(serveErr, shutdownErr, s.Close())
}

// Close stops the scheduler and releases the registry and store. It is
// safe to call after Run.
func (s *Server) Close() error {
	<-s.scheduler.Stop().Done()
	s.registry.Close()
	return s.store.Close()
}

func (s *Server) interceptors(required bool) connect.HandlerOption {
	authInterceptor := middleware.OptionalAuth(s.jwtManager)
	if required {
		authInterceptor = middleware.RequireAuth(s.jwtManager)
	}
	return connect.WithInterceptors(authInterceptor, middleware.LoggingInterceptor())
}
