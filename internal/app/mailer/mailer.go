// Package mailer собирает процесс отправки писем: очереди RabbitMQ и SMTP.
package mailer

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/edu-identity/internal/services/sender"
)

// App почтовый воркер.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к брокеру и объявляет очереди писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.EmailQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	mailbox := smtp.NewMailbox(cfg.SMTP, cfg.CollaboratorTimeout, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewService(mailbox, logger),
		logger:        logger,
	}, nil
}

// Run обрабатывает очереди до отмены ctx и дожидается писем в работе.
func (a *App) Run(ctx context.Context) error {
	var waits []func()
	for _, q := range rabbitmq.EmailQueues() {
		wait, err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.logger, a.senderService.Handle)
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.closeResources()
			return err
		}
		waits = append(waits, wait)
	}
	a.logger.Info("mailer started")

	<-ctx.Done()
	a.logger.Info("mailer shutting down gracefully")
	for _, wait := range waits {
		wait()
	}
	a.closeResources()
	return nil
}

func (a *App) closeResources() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
