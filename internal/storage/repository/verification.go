package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// IssueCode переводит активные коды пары (owner, action) в EXPIRED и вставляет
// новый активный код. Транзакция держит advisory-lock по паре, поэтому
// параллельные выпуски оставляют ровно один активный код.
func (s *Storage) IssueCode(ctx context.Context, code models.VerificationCode) (int64, int64, error) {
	const op = "storage.IssueCode"
	if err := checkCtx(ctx, op); err != nil {
		return 0, 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var id, expired int64
	err := WithTx(ctx, s.DB, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
			code.Owner+":"+string(code.Action)); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE verification_codes SET status = 'EXPIRED'
			WHERE owner = $1 AND action = $2 AND status = 'ACTIVE'`, code.Owner, code.Action)
		if err != nil {
			return err
		}
		if expired, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO verification_codes (owner, action, code_hash, generated_at, expires_at, status)
			VALUES ($1, $2, $3, $4, $5, 'ACTIVE')
			RETURNING id`,
			code.Owner, code.Action, code.CodeHash, code.GeneratedAt, code.ExpiresAt,
		).Scan(&id)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, expired, nil
}

// ConsumeCode одним условным UPDATE переводит подходящий активный
// неистёкший код в USED. Нет совпадения: models.ErrNotFound.
func (s *Storage) ConsumeCode(ctx context.Context, owner string, action models.CodeAction, codeHash string, now time.Time) (int64, error) {
	const op = "storage.ConsumeCode"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	id, err := consumeCode(ctx, s.DB, owner, action, codeHash, now)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CompleteSignup в одной транзакции погашает код и создаёт аккаунт с профилем.
// Любая ошибка откатывает транзакцию, и код остаётся активным. Нет подходящего
// кода: models.ErrNotFound; погашен код другой регистрации: models.ErrSignupSessionExpired.
func (s *Storage) CompleteSignup(ctx context.Context, r models.CodeRedemption, account models.Account, profile models.Profile) (int64, error) {
	const op = "storage.CompleteSignup"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var accountID int64
	err := WithTx(ctx, s.DB, nil, func(ctx context.Context, tx DBTX) error {
		codeID, err := consumeCode(ctx, tx, r.Owner, r.Action, r.CodeHash, r.Now)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if r.CodeID != 0 && codeID != r.CodeID {
			return models.ErrSignupSessionExpired
		}
		accountID, err = insertAccount(ctx, tx, account, profile)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrDuplicateIdentity)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return accountID, nil
}

func consumeCode(ctx context.Context, db DBTX, owner string, action models.CodeAction, codeHash string, now time.Time) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		UPDATE verification_codes SET status = 'USED'
		WHERE owner = $1 AND action = $2 AND code_hash = $3
		  AND status = 'ACTIVE' AND expires_at > $4
		RETURNING id`, owner, action, codeHash, now,
	).Scan(&id)
	return id, err
}

// ExpireStaleCodes переводит просроченные активные коды в EXPIRED.
func (s *Storage) ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.ExpireStaleCodes"
	return s.execCount(ctx, op, `
		UPDATE verification_codes SET status = 'EXPIRED'
		WHERE status = 'ACTIVE' AND expires_at <= $1`, now)
}

// ListCodes возвращает коды пары (owner, action) в порядке выпуска.
func (s *Storage) ListCodes(ctx context.Context, owner string, action models.CodeAction) ([]models.VerificationCode, error) {
	const op = "storage.ListCodes"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner, action, code_hash, generated_at, expires_at, status
		FROM verification_codes WHERE owner = $1 AND action = $2
		ORDER BY id`, owner, action)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.VerificationCode
	for rows.Next() {
		var c models.VerificationCode
		if err = rows.Scan(&c.ID, &c.Owner, &c.Action, &c.CodeHash, &c.GeneratedAt, &c.ExpiresAt, &c.Status); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
