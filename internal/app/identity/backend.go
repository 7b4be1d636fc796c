package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/edu-identity/internal/cache"
	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/health"
	"github.com/magabrotheeeer/edu-identity/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/edu-identity/internal/migrations"
	"github.com/magabrotheeeer/edu-identity/internal/services/auth"
	"github.com/magabrotheeeer/edu-identity/internal/services/credentials"
	"github.com/magabrotheeeer/edu-identity/internal/services/entitlement"
	"github.com/magabrotheeeer/edu-identity/internal/services/notifier"
	"github.com/magabrotheeeer/edu-identity/internal/services/session"
	"github.com/magabrotheeeer/edu-identity/internal/services/verification"
	"github.com/magabrotheeeer/edu-identity/internal/storage/memory"
	"github.com/magabrotheeeer/edu-identity/internal/storage/repository"
)

// Store хранилище всех сервисов процесса.
type Store interface {
	credentials.Repository
	session.Repository
	verification.Repository
	entitlement.Repository
}

// Backend внешние зависимости процесса.
type Backend struct {
	Store    Store
	Pending  auth.PendingStore
	Cache    entitlement.Cache
	Notifier auth.Notifier
	Checks   map[string]health.Check
	closers  []func() error
}

// Close закрывает соединения в обратном порядке открытия.
func (b *Backend) Close(logger *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Error("failed to close resource", slog.Any("err", err))
		}
	}
}

// LocalBackend всё в памяти процесса, письма пишутся в лог.
func LocalBackend(logger *slog.Logger) *Backend {
	store := memory.New()
	return &Backend{
		Store:    store,
		Pending:  store,
		Notifier: notifier.NewLog(logger),
		Checks:   map[string]health.Check{},
	}
}

// NewBackend подключается к PostgreSQL, Redis и RabbitMQ.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	const op = "identity.NewBackend"
	b := &Backend{Checks: map[string]health.Check{}}

	db, err := repository.New(ctx, cfg.StorageConnectionString, repository.WithTimeout(cfg.CollaboratorTimeout))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.closers = append(b.closers, db.Close)
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		b.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.Store = db
	b.Checks["postgres"] = db.DB.PingContext

	redisCache, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		b.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.closers = append(b.closers, redisCache.Close)
	b.Pending = redisCache
	b.Cache = redisCache
	b.Checks["redis"] = redisCache.Ping

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		b.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.closers = append(b.closers, conn.Close)
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.EmailQueues())
	if err != nil {
		b.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.closers = append(b.closers, ch.Close)
	b.Notifier = notifier.NewBroker(rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange), cfg.CollaboratorTimeout, logger)
	b.Checks["rabbitmq"] = connectionCheck(conn)

	return b, nil
}

func connectionCheck(conn *amqp.Connection) health.Check {
	return func(context.Context) error {
		if conn.IsClosed() {
			return amqp.ErrClosed
		}
		return nil
	}
}

// planCacheTTL время жизни планов в кэше, по умолчанию десять минут.
func planCacheTTL(cfg *config.Config) time.Duration {
	if cfg.PlanCacheTTL <= 0 {
		return 10 * time.Minute
	}
	return cfg.PlanCacheTTL
}
