// Package notifier ставит письма в очередь почтового воркера.
package notifier

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/magabrotheeeer/edu-identity/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Publisher публикация в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, message any) error
}

// Broker публикует задания на отправку писем в RabbitMQ.
type Broker struct {
	publisher Publisher
	timeout   time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewBroker создаёт Broker. timeout ограничивает одну публикацию.
func NewBroker(publisher Publisher, timeout time.Duration, log *slog.Logger) *Broker {
	return &Broker{
		publisher: publisher,
		timeout:   timeout,
		log:       log,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// SendCode ставит в очередь письмо с кодом подтверждения.
func (b *Broker) SendCode(ctx context.Context, email, code string, validityMinutes int) error {
	return b.publish(ctx, rabbitmq.RoutingKeyCode, models.EmailMessage{
		Kind:            models.EmailVerificationCode,
		Email:           email,
		Code:            code,
		ValidityMinutes: validityMinutes,
	})
}

// SendWelcome ставит в очередь приветственное письмо.
func (b *Broker) SendWelcome(ctx context.Context, email, name, handle string) error {
	return b.publish(ctx, rabbitmq.RoutingKeyWelcome, models.EmailMessage{
		Kind:   models.EmailWelcome,
		Email:  email,
		Name:   name,
		Handle: handle,
	})
}

func (b *Broker) publish(ctx context.Context, routingKey string, msg models.EmailMessage) error {
	const op = "notifier.publish"
	id, err := b.newID()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg.ID = id

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	if err := b.publisher.Publish(ctx, routingKey, id, msg); err != nil {
		b.log.Error("failed to publish email", sl.Op(op), slog.String("message_id", id), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	b.log.Debug("email queued", sl.Op(op), slog.String("message_id", id), slog.String("kind", string(msg.Kind)))
	return nil
}

func (b *Broker) newID() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), b.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Log пишет письма в лог вместо отправки. Для окружения local.
type Log struct {
	log *slog.Logger
}

// NewLog создаёт Log.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

// SendCode пишет код в лог.
func (l *Log) SendCode(_ context.Context, email, code string, validityMinutes int) error {
	l.log.Info("verification code (local delivery)",
		slog.String("email", email),
		slog.String("code", code),
		slog.Int("validity_minutes", validityMinutes),
	)
	return nil
}

// SendWelcome пишет приветствие в лог.
func (l *Log) SendWelcome(_ context.Context, email, name, handle string) error {
	l.log.Info("welcome email (local delivery)",
		slog.String("email", email),
		slog.String("name", name),
		slog.String("handle", handle),
	)
	return nil
}
