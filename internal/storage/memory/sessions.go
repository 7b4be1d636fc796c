package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// CreateSession сохраняет новую активную сессию.
func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	const op = "memory.CreateSession"
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[session.AccountID]; !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	session.Active = true
	s.sessions[session.ID] = &session
	return nil
}

// ReplaceActiveSessions деактивирует все активные сессии аккаунта и создаёт новую.
func (s *Store) ReplaceActiveSessions(ctx context.Context, session models.Session) (int64, error) {
	const op = "memory.ReplaceActiveSessions"
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[session.AccountID]; !ok {
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	var superseded int64
	for _, existing := range s.sessions {
		if existing.AccountID == session.AccountID && existing.Active {
			existing.Active = false
			superseded++
		}
	}
	session.Active = true
	s.sessions[session.ID] = &session
	return superseded, nil
}

// GetSession возвращает копию сессии.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "memory.GetSession"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

// TouchSession обновляет время активности активной сессии.
func (s *Store) TouchSession(ctx context.Context, id string, now time.Time) error {
	const op = "memory.TouchSession"
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.Active {
		return fmt.Errorf("%s: %w", op, models.ErrSessionInactive)
	}
	if now.After(sess.LastActivityAt) {
		sess.LastActivityAt = now
	}
	return nil
}

// DeactivateSession завершает сессию.
func (s *Store) DeactivateSession(ctx context.Context, id string) error {
	const op = "memory.DeactivateSession"
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Active = false
	}
	return nil
}

// DeactivateAccountSessions завершает все активные сессии аккаунта.
func (s *Store) DeactivateAccountSessions(ctx context.Context, accountID int64) (int64, error) {
	return s.deactivateWhere(ctx, "memory.DeactivateAccountSessions", func(sess *models.Session) bool {
		return sess.AccountID == accountID
	})
}

// DeactivateIdleSessions завершает сессии без активности с момента cutoff.
func (s *Store) DeactivateIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deactivateWhere(ctx, "memory.DeactivateIdleSessions", func(sess *models.Session) bool {
		return sess.LastActivityAt.Before(cutoff)
	})
}

func (s *Store) deactivateWhere(ctx context.Context, op string, match func(*models.Session) bool) (int64, error) {
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.sessions {
		if sess.Active && match(sess) {
			sess.Active = false
			n++
		}
	}
	return n, nil
}

// ListActiveSessions возвращает активные сессии аккаунта.
func (s *Store) ListActiveSessions(ctx context.Context, accountID int64) ([]models.Session, error) {
	const op = "memory.ListActiveSessions"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSessions(func(sess *models.Session) bool {
		return sess.AccountID == accountID && sess.Active
	}), nil
}
