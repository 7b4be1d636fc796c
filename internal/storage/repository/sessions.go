package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

const insertSession = `
	INSERT INTO sessions (id, account_id, device_id, device_type, login_time, last_activity_at, active, exclusive)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)`

// CreateSession сохраняет новую активную сессию, не трогая остальные.
func (s *Storage) CreateSession(ctx context.Context, session models.Session) error {
	const op = "storage.CreateSession"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, insertSession,
		session.ID, session.AccountID, session.DeviceID, session.DeviceType,
		session.LoginTime, session.LastActivityAt, session.Exclusive)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReplaceActiveSessions деактивирует все активные сессии аккаунта и создаёт новую
// в одной транзакции. Строка аккаунта блокируется, поэтому параллельные входы
// одного аккаунта выполняются по очереди. Возвращает число вытесненных сессий.
func (s *Storage) ReplaceActiveSessions(ctx context.Context, session models.Session) (int64, error) {
	const op = "storage.ReplaceActiveSessions"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var superseded int64
	err := WithTx(ctx, s.DB, nil, func(ctx context.Context, tx DBTX) error {
		var id int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, session.AccountID).Scan(&id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE sessions SET active = FALSE WHERE account_id = $1 AND active`, session.AccountID)
		if err != nil {
			return err
		}
		if superseded, err = res.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertSession,
			session.ID, session.AccountID, session.DeviceID, session.DeviceType,
			session.LoginTime, session.LastActivityAt, session.Exclusive)
		return err
	})
	if err != nil {
		return 0, mapError(op, err)
	}
	return superseded, nil
}

// GetSession возвращает сессию по идентификатору.
func (s *Storage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "storage.GetSession"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var session models.Session
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, account_id, device_id, device_type, login_time, last_activity_at, active, exclusive
		FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.AccountID, &session.DeviceID, &session.DeviceType,
		&session.LoginTime, &session.LastActivityAt, &session.Active, &session.Exclusive)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &session, nil
}

// TouchSession обновляет время последней активности активной сессии.
// Неактивная или неизвестная сессия возвращает models.ErrSessionInactive.
func (s *Storage) TouchSession(ctx context.Context, id string, now time.Time) error {
	const op = "storage.TouchSession"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $1 AND active`, id, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrSessionInactive)
	}
	return nil
}

// DeactivateSession завершает одну сессию. Повторный вызов не ошибка.
func (s *Storage) DeactivateSession(ctx context.Context, id string) error {
	const op = "storage.DeactivateSession"
	_, err := s.execCount(ctx, op, `UPDATE sessions SET active = FALSE WHERE id = $1 AND active`, id)
	return err
}

// DeactivateAccountSessions завершает все активные сессии аккаунта.
func (s *Storage) DeactivateAccountSessions(ctx context.Context, accountID int64) (int64, error) {
	const op = "storage.DeactivateAccountSessions"
	return s.execCount(ctx, op, `UPDATE sessions SET active = FALSE WHERE account_id = $1 AND active`, accountID)
}

// DeactivateIdleSessions завершает сессии без активности с момента cutoff.
func (s *Storage) DeactivateIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "storage.DeactivateIdleSessions"
	return s.execCount(ctx, op, `UPDATE sessions SET active = FALSE WHERE active AND last_activity_at < $1`, cutoff)
}

// ListActiveSessions возвращает активные сессии аккаунта, новые первыми.
func (s *Storage) ListActiveSessions(ctx context.Context, accountID int64) ([]models.Session, error) {
	const op = "storage.ListActiveSessions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, account_id, device_id, device_type, login_time, last_activity_at, active, exclusive
		FROM sessions WHERE account_id = $1 AND active
		ORDER BY login_time DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Session
	for rows.Next() {
		var session models.Session
		if err = rows.Scan(&session.ID, &session.AccountID, &session.DeviceID, &session.DeviceType,
			&session.LoginTime, &session.LastActivityAt, &session.Active, &session.Exclusive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) execCount(ctx context.Context, op, query string, args ...any) (int64, error) {
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
