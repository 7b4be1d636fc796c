// Package sweeper собирает процесс фоновой очистки сессий и кодов.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	sweeperservice "github.com/magabrotheeeer/edu-identity/internal/services/sweeper"
	"github.com/magabrotheeeer/edu-identity/internal/storage/repository"
)

// App процесс очистки.
type App struct {
	service *sweeperservice.Service
	db      *repository.Storage
	metrics *http.Server
	logger  *slog.Logger
}

// New подключается к базе и создаёт сервис очистки. Счётчики отдаются
// на адресе HTTP-сервера из конфига.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString, repository.WithTimeout(cfg.CollaboratorTimeout))
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &App{
		service: sweeperservice.NewService(db, cfg.Session.IdleTimeout, cfg.Sweeper.Interval, rec, logger),
		db:      db,
		metrics: &http.Server{
			Addr:              cfg.AddressHTTP,
			Handler:           mux,
			ReadHeaderTimeout: cfg.TimeoutHTTP,
		},
		logger: logger,
	}, nil
}

// Run выполняет очистку по расписанию до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", sl.Err(err))
		}
	}()

	a.service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
