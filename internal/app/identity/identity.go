// Package identity собирает HTTP-процесс идентификации: хранилище, сервисы, маршруты.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/lib/jwt"
	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/services/auth"
	"github.com/magabrotheeeer/edu-identity/internal/services/credentials"
	"github.com/magabrotheeeer/edu-identity/internal/services/entitlement"
	"github.com/magabrotheeeer/edu-identity/internal/services/session"
	"github.com/magabrotheeeer/edu-identity/internal/services/verification"
)

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Auth         *auth.Service
	Accounts     *credentials.Store
	Entitlements *entitlement.Resolver
}

// App HTTP-процесс.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	backend *Backend
}

// New подключает внешние зависимости (или память для env local) и собирает App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	var backend *Backend
	if cfg.Env == config.EnvLocal {
		logger.Warn("local env: in-memory storage, emails are written to log")
		backend = LocalBackend(logger)
	} else {
		var err error
		backend, err = NewBackend(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	return Build(cfg, logger, backend), nil
}

// Build собирает сервисы и HTTP-сервер поверх готового Backend.
func Build(cfg *config.Config, logger *slog.Logger, backend *Backend) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	services := NewServices(cfg, logger, backend, rec)

	router := chi.NewRouter()
	RegisterRoutes(router, cfg, logger, services, backend.Checks, reg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		backend: backend,
	}
}

// NewServices создаёт сервисы ядра.
func NewServices(cfg *config.Config, logger *slog.Logger, backend *Backend, rec *metrics.Recorder) *Services {
	hasher := password.NewHasher(cfg.Auth.BcryptCost)

	creds := credentials.NewStore(backend.Store, hasher, cfg.Auth.LockThreshold, rec, logger)
	sessions := session.NewManager(backend.Store, cfg.Session.IdleTimeout, rec, logger)
	codes := verification.NewIssuer(backend.Store, cfg.Auth.CodeLength, cfg.Auth.CodeValidity, rec, logger)
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := auth.New(auth.Deps{
		Credentials:   creds,
		Sessions:      sessions,
		Codes:         codes,
		Tokens:        tokens,
		Hasher:        hasher,
		Pending:       backend.Pending,
		Notifier:      backend.Notifier,
		PendingMargin: cfg.Auth.PendingSignupMargin,
		Log:           logger,
	})

	return &Services{
		Auth:         authService,
		Accounts:     creds,
		Entitlements: entitlement.NewResolver(backend.Store, backend.Cache, planCacheTTL(cfg), rec, logger),
	}
}

// Handler маршрутизатор процесса.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run обслуживает запросы до отмены ctx и затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.backend.Close(a.logger)
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.backend.Close(a.logger)
		return err
	}
}
