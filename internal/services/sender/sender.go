// Package sender формирует и отправляет письма по заданиям из очереди.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// ErrUnknownKind задание с неизвестным типом письма.
var ErrUnknownKind = errors.New("unknown email kind")

// Mailer доставляет готовое письмо; реализуется smtp.Mailbox.
type Mailer interface {
	From() string
	Send(ctx context.Context, to []string, msg []byte) error
}

// Service отправляет письма через Mailer.
type Service struct {
	mailer Mailer
	log    *slog.Logger
}

// NewService создаёт Service.
func NewService(mailer Mailer, log *slog.Logger) *Service {
	return &Service{
		mailer: mailer,
		log:    log,
	}
}

// Handle разбирает задание и отправляет соответствующее письмо.
func (s *Service) Handle(ctx context.Context, body []byte) error {
	const op = "sender.Handle"
	var message models.EmailMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if message.Email == "" {
		return fmt.Errorf("%s: message %s has no recipient", op, message.ID)
	}

	subject, text, err := Render(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	to := []string{message.Email}
	if err := s.mailer.Send(ctx, to, Compose(s.mailer.From(), to, subject, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email sent", sl.Op(op), slog.String("message_id", message.ID), slog.String("kind", string(message.Kind)))
	return nil
}

// Render возвращает тему и текст письма.
func Render(m models.EmailMessage) (subject, text string, err error) {
	switch m.Kind {
	case models.EmailVerificationCode:
		subject = "Код подтверждения регистрации"
		text = fmt.Sprintf("Здравствуйте!\n\nВаш код подтверждения: %s\n\nКод действует %d мин. "+
			"Если вы не регистрировались, просто проигнорируйте это письмо.", m.Code, m.ValidityMinutes)
	case models.EmailWelcome:
		subject = "Добро пожаловать"
		text = fmt.Sprintf("Здравствуйте, %s!\n\nВаш аккаунт создан. Логин для входа: %s.", m.Name, m.Handle)
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return subject, text, nil
}

// Compose собирает письмо text/plain в UTF-8; тема кодируется по RFC 2047.
func Compose(from string, to []string, subject, bodyText string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("UTF-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n"))
}
