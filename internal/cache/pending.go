package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

const pendingPrefix = "signup:pending:"

// PendingKey ключ незавершённой регистрации для email.
func PendingKey(email string) string {
	return pendingPrefix + strings.ToLower(email)
}

// PutPending сохраняет незавершённую регистрацию на время ttl, заменяя прежнюю.
func (c *Cache) PutPending(ctx context.Context, email string, p models.PendingSignup, ttl time.Duration) error {
	const op = "cache.PutPending"
	if err := c.Set(ctx, PendingKey(email), p, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPending возвращает незавершённую регистрацию или models.ErrNotFound.
func (c *Cache) GetPending(ctx context.Context, email string) (*models.PendingSignup, error) {
	const op = "cache.GetPending"
	var p models.PendingSignup
	found, err := c.Get(ctx, PendingKey(email), &p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return &p, nil
}

// DeletePending удаляет незавершённую регистрацию.
func (c *Cache) DeletePending(ctx context.Context, email string) error {
	const op = "cache.DeletePending"
	if err := c.Invalidate(ctx, PendingKey(email)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
