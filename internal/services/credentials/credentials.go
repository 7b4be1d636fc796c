// Package credentials владеет учётными записями и счётчиками неудачных входов.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Repository хранилище аккаунтов.
type Repository interface {
	GetAccountByHandle(ctx context.Context, handle string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (int64, error)
	// CompleteSignup атомарно погашает код и создаёт аккаунт с профилем.
	CompleteSignup(ctx context.Context, r models.CodeRedemption, account models.Account, profile models.Profile) (int64, error)
	GetProfile(ctx context.Context, accountID int64) (*models.Profile, error)
	// RecordFailedAttempt атомарно увеличивает счётчик и блокирует аккаунт на пороге.
	// Для уже заблокированного аккаунта возвращает models.ErrAccountLocked.
	RecordFailedAttempt(ctx context.Context, accountID int64, threshold int, now time.Time) (models.AttemptResult, error)
	// RecordSuccessfulLogin сбрасывает счётчик, если аккаунт не заблокирован.
	RecordSuccessfulLogin(ctx context.Context, accountID int64, now time.Time) error
	Unlock(ctx context.Context, handle string, now time.Time) error
	SetRole(ctx context.Context, handle string, role models.Role, now time.Time) error
}

// Hasher проверка паролей.
type Hasher interface {
	Verify(plaintext, digest string) bool
	Equalize(plaintext string)
}

// Store проверяет пароли и ведёт блокировки.
type Store struct {
	repo      Repository
	hasher    Hasher
	threshold int
	metrics   *metrics.Recorder
	log       *slog.Logger
}

// NewStore создаёт Store. threshold число неудачных попыток до блокировки.
func NewStore(repo Repository, hasher Hasher, threshold int, m *metrics.Recorder, log *slog.Logger) *Store {
	return &Store{
		repo:      repo,
		hasher:    hasher,
		threshold: threshold,
		metrics:   m,
		log:       log,
	}
}

// VerifyLogin проверяет пару логин-пароль.
//
// Заблокированный аккаунт отклоняется без проверки пароля. Неверный пароль
// увеличивает счётчик, и попытка, достигшая порога, блокирует аккаунт.
// Верный пароль сбрасывает счётчик. Отсутствующий логин неотличим от неверного пароля.
func (s *Store) VerifyLogin(ctx context.Context, handle, plaintext string, now time.Time) (*models.Account, error) {
	const op = "credentials.VerifyLogin"
	log := s.log.With(sl.Op(op))

	account, err := s.repo.GetAccountByHandle(ctx, strings.TrimSpace(handle))
	if errors.Is(err, models.ErrNotFound) {
		s.hasher.Equalize(plaintext)
		s.metrics.LoginAttempt(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		s.metrics.LoginAttempt(metrics.OutcomeError)
		log.Error("failed to load account", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(sl.Account(account.ID))

	if account.Locked {
		s.metrics.LoginAttempt(metrics.OutcomeLocked)
		log.Info("login rejected, account locked")
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}

	if !s.hasher.Verify(plaintext, account.PasswordHash) {
		return nil, s.recordFailure(ctx, log, op, account.ID, now)
	}

	err = s.repo.RecordSuccessfulLogin(ctx, account.ID, now)
	if errors.Is(err, models.ErrAccountLocked) {
		s.metrics.LoginAttempt(metrics.OutcomeLocked)
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}
	if err != nil {
		s.metrics.LoginAttempt(metrics.OutcomeError)
		log.Error("failed to reset failed attempts", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account.FailedAttempts = 0
	account.LastLoginAt = &now
	account.LastAttemptAt = &now
	s.metrics.LoginAttempt(metrics.OutcomeSuccess)
	return account, nil
}

func (s *Store) recordFailure(ctx context.Context, log *slog.Logger, op string, accountID int64, now time.Time) error {
	res, err := s.repo.RecordFailedAttempt(ctx, accountID, s.threshold, now)
	if errors.Is(err, models.ErrAccountLocked) {
		s.metrics.LoginAttempt(metrics.OutcomeLocked)
		return fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}
	if err != nil {
		s.metrics.LoginAttempt(metrics.OutcomeError)
		log.Error("failed to record failed attempt", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.Locked {
		s.metrics.Lockout()
		s.metrics.LoginAttempt(metrics.OutcomeLocked)
		log.Warn("account locked", slog.Int("failed_attempts", res.FailedAttempts))
		return fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}
	s.metrics.LoginAttempt(metrics.OutcomeInvalid)
	log.Info("invalid password", slog.Int("failed_attempts", res.FailedAttempts))
	return fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
}

// Register создаёт аккаунт и профиль. Занятый логин или email дают models.ErrDuplicateIdentity.
func (s *Store) Register(ctx context.Context, account models.Account, profile models.Profile) (*models.Account, error) {
	const op = "credentials.Register"
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	profile.Email = account.Email
	id, err := s.repo.CreateAccount(ctx, account, profile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account.ID = id
	s.log.Info("account created",
		sl.Op(op),
		sl.Account(id),
		slog.String("signup_method", string(account.SignupMethod)),
	)
	return &account, nil
}

// CompleteSignup погашает код регистрации и создаёт аккаунт одной операцией
// хранилища. Неподходящий код даёт models.ErrInvalidOrExpiredCode и не
// меняет ничего, сбой записи аккаунта оставляет код активным.
func (s *Store) CompleteSignup(ctx context.Context, r models.CodeRedemption, account models.Account, profile models.Profile) (*models.Account, error) {
	const op = "credentials.CompleteSignup"
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	profile.Email = account.Email
	id, err := s.repo.CompleteSignup(ctx, r, account, profile)
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.Code(string(r.Action), "rejected")
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidOrExpiredCode)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Code(string(r.Action), "consumed")
	account.ID = id
	s.log.Info("account created",
		sl.Op(op),
		sl.Account(id),
		slog.String("signup_method", string(account.SignupMethod)),
	)
	return &account, nil
}

// EnsureAvailable проверяет, что логин и email свободны.
func (s *Store) EnsureAvailable(ctx context.Context, handle, email string) error {
	const op = "credentials.EnsureAvailable"
	taken, err := s.repo.HandleExists(ctx, handle)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !taken {
		taken, err = s.repo.EmailExists(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if taken {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateIdentity)
	}
	return nil
}

// HandleTaken сообщает, занят ли логин.
func (s *Store) HandleTaken(ctx context.Context, handle string) (bool, error) {
	return s.repo.HandleExists(ctx, handle)
}

// FindByEmail возвращает аккаунт по email или models.ErrNotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Account возвращает аккаунт по идентификатору.
func (s *Store) Account(ctx context.Context, id int64) (*models.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// Profile возвращает профиль аккаунта.
func (s *Store) Profile(ctx context.Context, accountID int64) (*models.Profile, error) {
	return s.repo.GetProfile(ctx, accountID)
}

// Unlock снимает блокировку и обнуляет счётчик. Административная операция.
func (s *Store) Unlock(ctx context.Context, handle string, now time.Time) error {
	const op = "credentials.Unlock"
	if err := s.repo.Unlock(ctx, handle, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account unlocked", sl.Op(op), slog.String("handle", handle))
	return nil
}

// SetRole меняет роль аккаунта. Административная операция.
// Смена роли закрывает активные сессии аккаунта: токены с прежней ролью
// перестают проходить проверку сессии.
func (s *Store) SetRole(ctx context.Context, handle string, role models.Role, now time.Time) error {
	const op = "credentials.SetRole"
	if !role.Valid() {
		return fmt.Errorf("%s: unknown role %q", op, role)
	}
	if err := s.repo.SetRole(ctx, handle, role, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account role changed", sl.Op(op), slog.String("handle", handle), slog.String("role", string(role)))
	return nil
}
