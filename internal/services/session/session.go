// Package session устанавливает и завершает сессии с учётом политики устройств роли.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Repository хранилище сессий.
type Repository interface {
	CreateSession(ctx context.Context, session models.Session) error
	// ReplaceActiveSessions в одной транзакции деактивирует активные сессии аккаунта
	// и сохраняет новую. Возвращает число вытесненных.
	ReplaceActiveSessions(ctx context.Context, session models.Session) (int64, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	TouchSession(ctx context.Context, id string, now time.Time) error
	DeactivateSession(ctx context.Context, id string) error
	DeactivateAccountSessions(ctx context.Context, accountID int64) (int64, error)
	ListActiveSessions(ctx context.Context, accountID int64) ([]models.Session, error)
}

// establishFunc сохраняет сессию согласно политике.
type establishFunc func(ctx context.Context, repo Repository, s models.Session) (superseded int64, err error)

var strategies = map[models.DevicePolicy]establishFunc{
	models.SingleDevice: func(ctx context.Context, repo Repository, s models.Session) (int64, error) {
		s.Exclusive = true
		return repo.ReplaceActiveSessions(ctx, s)
	},
	models.MultiDevice: func(ctx context.Context, repo Repository, s models.Session) (int64, error) {
		return 0, repo.CreateSession(ctx, s)
	},
}

// Manager управляет сессиями.
type Manager struct {
	repo        Repository
	idleTimeout time.Duration
	metrics     *metrics.Recorder
	log         *slog.Logger
}

// NewManager создаёт Manager. idleTimeout время бездействия, после которого
// сессия считается завершённой; ноль отключает проверку.
func NewManager(repo Repository, idleTimeout time.Duration, m *metrics.Recorder, log *slog.Logger) *Manager {
	return &Manager{
		repo:        repo,
		idleTimeout: idleTimeout,
		metrics:     m,
		log:         log,
	}
}

// Establish создаёт активную сессию. Для ролей с политикой одного устройства
// все прежние активные сессии аккаунта деактивируются в той же транзакции.
func (m *Manager) Establish(ctx context.Context, account *models.Account, deviceID string, deviceType models.DeviceType, now time.Time) (*models.Session, error) {
	const op = "session.Establish"
	now = now.UTC()
	s := models.Session{
		ID:             uuid.NewString(),
		AccountID:      account.ID,
		DeviceID:       deviceID,
		DeviceType:     deviceType,
		LoginTime:      now,
		LastActivityAt: now,
		Active:         true,
	}
	if s.DeviceType == "" {
		s.DeviceType = models.DeviceWeb
	}

	policy := account.Role.DevicePolicy()
	superseded, err := strategies[policy](ctx, m.repo, s)
	if err != nil {
		m.log.Error("failed to establish session", sl.Op(op), sl.Account(account.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.Exclusive = policy == models.SingleDevice

	m.metrics.SessionsSuperseded(superseded)
	m.log.Info("session established",
		sl.Op(op),
		sl.Account(account.ID),
		slog.String("session_id", s.ID),
		slog.String("device_type", string(s.DeviceType)),
		slog.Int64("superseded", superseded),
	)
	return &s, nil
}

// Validate проверяет, что сессия активна, принадлежит аккаунту и не простаивала
// дольше idleTimeout, и отмечает активность.
func (m *Manager) Validate(ctx context.Context, sessionID string, accountID int64, now time.Time) error {
	const op = "session.Validate"
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, models.ErrSessionInactive, err)
	}
	if !s.Active || s.AccountID != accountID {
		return fmt.Errorf("%s: %w", op, models.ErrSessionInactive)
	}
	if m.idleTimeout > 0 && now.Sub(s.LastActivityAt) > m.idleTimeout {
		if err := m.repo.DeactivateSession(ctx, sessionID); err != nil {
			m.log.Warn("failed to deactivate idle session", sl.Op(op), slog.String("session_id", sessionID), sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, models.ErrSessionInactive)
	}
	if err := m.repo.TouchSession(ctx, sessionID, now.UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Deactivate завершает одну сессию. Повторный вызов не является ошибкой.
func (m *Manager) Deactivate(ctx context.Context, sessionID string) error {
	const op = "session.Deactivate"
	if err := m.repo.DeactivateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeactivateAll завершает все активные сессии аккаунта. Идемпотентна.
func (m *Manager) DeactivateAll(ctx context.Context, accountID int64) (int64, error) {
	const op = "session.DeactivateAll"
	n, err := m.repo.DeactivateAccountSessions(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("sessions deactivated", sl.Op(op), sl.Account(accountID), slog.Int64("count", n))
	return n, nil
}

// Active возвращает активные сессии аккаунта.
func (m *Manager) Active(ctx context.Context, accountID int64) ([]models.Session, error) {
	const op = "session.Active"
	sessions, err := m.repo.ListActiveSessions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}
