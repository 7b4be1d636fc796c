package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// IssueCode истекает активные коды пары и добавляет новый.
func (s *Store) IssueCode(ctx context.Context, code models.VerificationCode) (int64, int64, error) {
	const op = "memory.IssueCode"
	if err := done(ctx, op); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired int64
	for _, c := range s.codes {
		if c.Owner == code.Owner && c.Action == code.Action && c.Status == models.CodeActive {
			c.Status = models.CodeExpired
			expired++
		}
	}
	code.ID = s.id()
	code.Status = models.CodeActive
	s.codes = append(s.codes, &code)
	return code.ID, expired, nil
}

// ConsumeCode переводит подходящий активный код в USED.
func (s *Store) ConsumeCode(ctx context.Context, owner string, action models.CodeAction, codeHash string, now time.Time) (int64, error) {
	const op = "memory.ConsumeCode"
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.matchCode(owner, action, codeHash, now)
	if c == nil {
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	c.Status = models.CodeUsed
	return c.ID, nil
}

// matchCode ищет активный неистёкший код. Вызывается под s.mu.
func (s *Store) matchCode(owner string, action models.CodeAction, codeHash string, now time.Time) *models.VerificationCode {
	for _, c := range s.codes {
		if c.Owner == owner && c.Action == action && c.CodeHash == codeHash &&
			c.Status == models.CodeActive && c.ExpiresAt.After(now) {
			return c
		}
	}
	return nil
}

// ExpireStaleCodes переводит просроченные активные коды в EXPIRED.
func (s *Store) ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error) {
	const op = "memory.ExpireStaleCodes"
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.codes {
		if c.Status == models.CodeActive && !c.ExpiresAt.After(now) {
			c.Status = models.CodeExpired
			n++
		}
	}
	return n, nil
}

// ListCodes возвращает коды пары в порядке выпуска.
func (s *Store) ListCodes(ctx context.Context, owner string, action models.CodeAction) ([]models.VerificationCode, error) {
	const op = "memory.ListCodes"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VerificationCode
	for _, c := range s.codes {
		if c.Owner == owner && c.Action == action {
			out = append(out, *c)
		}
	}
	return out, nil
}
