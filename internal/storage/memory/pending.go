package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// PutPending сохраняет незавершённую регистрацию на время ttl, заменяя прежнюю.
func (s *Store) PutPending(ctx context.Context, email string, p models.PendingSignup, ttl time.Duration) error {
	const op = "memory.PutPending"
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[strings.ToLower(email)] = pendingEntry{value: p, expiresAt: s.now().Add(ttl)}
	return nil
}

// GetPending возвращает незавершённую регистрацию, если её срок не истёк.
func (s *Store) GetPending(ctx context.Context, email string) (*models.PendingSignup, error) {
	const op = "memory.GetPending"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	e, ok := s.pending[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.pending, key)
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	v := e.value
	return &v, nil
}

// DeletePending удаляет незавершённую регистрацию.
func (s *Store) DeletePending(ctx context.Context, email string) error {
	const op = "memory.DeletePending"
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, strings.ToLower(email))
	return nil
}

// SetClock подменяет часы хранилища. Для тестов истечения.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
