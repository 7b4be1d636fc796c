package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

const accountColumns = `id, handle, email, password_hash, failed_attempts, locked, role,
	signup_method, last_attempt_at, last_login_at, password_expiry, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var (
		a                                      models.Account
		lastAttempt, lastLogin, passwordExpiry sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Handle, &a.Email, &a.PasswordHash, &a.FailedAttempts, &a.Locked,
		&a.Role, &a.SignupMethod, &lastAttempt, &lastLogin, &passwordExpiry, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.LastAttemptAt = nullTime(lastAttempt)
	a.LastLoginAt = nullTime(lastLogin)
	a.PasswordExpiry = nullTime(passwordExpiry)
	return &a, nil
}

// GetAccountByHandle возвращает аккаунт по логину.
func (s *Storage) GetAccountByHandle(ctx context.Context, handle string) (*models.Account, error) {
	const op = "storage.GetAccountByHandle"
	return s.getAccount(ctx, op, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle)
}

// GetAccountByEmail возвращает аккаунт по email.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	return s.getAccount(ctx, op, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// GetAccount возвращает аккаунт по идентификатору.
func (s *Storage) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	const op = "storage.GetAccount"
	return s.getAccount(ctx, op, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *Storage) getAccount(ctx context.Context, op, query string, arg any) (*models.Account, error) {
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapError(op, err)
	}
	return a, nil
}

// HandleExists сообщает, занят ли логин.
func (s *Storage) HandleExists(ctx context.Context, handle string) (bool, error) {
	const op = "storage.HandleExists"
	return s.exists(ctx, op, `SELECT EXISTS (SELECT 1 FROM accounts WHERE handle = $1)`, handle)
}

// EmailExists сообщает, занят ли email.
func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.EmailExists"
	return s.exists(ctx, op, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (s *Storage) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var ok bool
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// CreateAccount создаёт аккаунт и профиль в одной транзакции.
// Занятый логин или email возвращает models.ErrDuplicateIdentity.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (int64, error) {
	const op = "storage.CreateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var id int64
	err := WithTx(ctx, s.DB, nil, func(ctx context.Context, tx DBTX) error {
		var err error
		id, err = insertAccount(ctx, tx, account, profile)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrDuplicateIdentity)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func insertAccount(ctx context.Context, tx DBTX, account models.Account, profile models.Profile) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (handle, email, password_hash, role, signup_method,
		                      password_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`,
		account.Handle, account.Email, account.PasswordHash, account.Role, account.SignupMethod,
		account.PasswordExpiry, account.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (account_id, first_name, middle_name, last_name, email,
		                      mobile_no, country, state, city, address, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, profile.FirstName, profile.MiddleName, profile.LastName, profile.Email,
		profile.MobileNo, profile.Country, profile.State, profile.City, profile.Address, profile.ExternalID,
	)
	return id, err
}

// GetProfile возвращает профиль аккаунта.
func (s *Storage) GetProfile(ctx context.Context, accountID int64) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var p models.Profile
	err := s.DB.QueryRowContext(ctx, `
		SELECT account_id, first_name, middle_name, last_name, email, mobile_no,
		       country, state, city, address, external_id
		FROM profiles WHERE account_id = $1`, accountID,
	).Scan(&p.AccountID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Email, &p.MobileNo,
		&p.Country, &p.State, &p.City, &p.Address, &p.ExternalID)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &p, nil
}

// RecordFailedAttempt атомарно увеличивает счётчик неудачных попыток и
// блокирует аккаунт, когда счётчик достигает threshold. Уже заблокированный
// аккаунт не меняется и возвращает models.ErrAccountLocked.
func (s *Storage) RecordFailedAttempt(ctx context.Context, accountID int64, threshold int, now time.Time) (models.AttemptResult, error) {
	const op = "storage.RecordFailedAttempt"
	if err := checkCtx(ctx, op); err != nil {
		return models.AttemptResult{}, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var res models.AttemptResult
	err := s.DB.QueryRowContext(ctx, `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    locked = (failed_attempts + 1 >= $2),
		    last_attempt_at = $3,
		    updated_at = $3
		WHERE id = $1 AND NOT locked
		RETURNING failed_attempts, locked`,
		accountID, threshold, now,
	).Scan(&res.FailedAttempts, &res.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AttemptResult{}, s.lockedOrMissing(ctx, op, accountID)
	}
	if err != nil {
		return models.AttemptResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// RecordSuccessfulLogin сбрасывает счётчик и отмечает время входа, если аккаунт не заблокирован.
func (s *Storage) RecordSuccessfulLogin(ctx context.Context, accountID int64, now time.Time) error {
	const op = "storage.RecordSuccessfulLogin"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, `
		UPDATE accounts
		SET failed_attempts = 0, last_login_at = $2, last_attempt_at = $2, updated_at = $2
		WHERE id = $1 AND NOT locked`, accountID, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return s.lockedOrMissing(ctx, op, accountID)
	}
	return nil
}

func (s *Storage) lockedOrMissing(ctx context.Context, op string, accountID int64) error {
	var locked bool
	err := s.DB.QueryRowContext(ctx, `SELECT locked FROM accounts WHERE id = $1`, accountID).Scan(&locked)
	if err != nil {
		return mapError(op, err)
	}
	if locked {
		return fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}
	return fmt.Errorf("%s: account %d changed concurrently", op, accountID)
}

// Unlock снимает блокировку и обнуляет счётчик попыток.
func (s *Storage) Unlock(ctx context.Context, handle string, now time.Time) error {
	const op = "storage.Unlock"
	return s.updateAccount(ctx, op, `
		UPDATE accounts SET locked = FALSE, failed_attempts = 0, updated_at = $2
		WHERE handle = $1`, handle, now)
}

// SetRole меняет роль аккаунта и в той же транзакции закрывает его активные
// сессии, если роль действительно изменилась.
func (s *Storage) SetRole(ctx context.Context, handle string, role models.Role, now time.Time) error {
	const op = "storage.SetRole"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	err := WithTx(ctx, s.DB, nil, func(ctx context.Context, tx DBTX) error {
		var (
			id      int64
			current models.Role
		)
		if err := tx.QueryRowContext(ctx,
			`SELECT id, role FROM accounts WHERE handle = $1 FOR UPDATE`, handle,
		).Scan(&id, &current); err != nil {
			return err
		}
		if current == role {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET role = $2, updated_at = $3 WHERE id = $1`, id, role, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET active = FALSE WHERE account_id = $1 AND active`, id)
		return err
	})
	if err != nil {
		return mapError(op, err)
	}
	return nil
}

func (s *Storage) updateAccount(ctx context.Context, op, query string, args ...any) error {
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
