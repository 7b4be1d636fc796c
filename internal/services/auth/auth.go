// Package auth собирает вход, регистрацию и федеративный вход из учётных записей,
// сессий, кодов подтверждения и токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/edu-identity/internal/lib/jwt"
	"github.com/magabrotheeeer/edu-identity/internal/lib/keylock"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Credentials учётные записи и блокировки.
type Credentials interface {
	VerifyLogin(ctx context.Context, handle, plaintext string, now time.Time) (*models.Account, error)
	Register(ctx context.Context, account models.Account, profile models.Profile) (*models.Account, error)
	CompleteSignup(ctx context.Context, r models.CodeRedemption, account models.Account, profile models.Profile) (*models.Account, error)
	EnsureAvailable(ctx context.Context, handle, email string) error
	HandleTaken(ctx context.Context, handle string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Unlock(ctx context.Context, handle string, now time.Time) error
}

// Sessions управление сессиями.
type Sessions interface {
	Establish(ctx context.Context, account *models.Account, deviceID string, deviceType models.DeviceType, now time.Time) (*models.Session, error)
	Validate(ctx context.Context, sessionID string, accountID int64, now time.Time) error
	Deactivate(ctx context.Context, sessionID string) error
	DeactivateAll(ctx context.Context, accountID int64) (int64, error)
}

// Codes коды подтверждения.
type Codes interface {
	Issue(ctx context.Context, owner string, action models.CodeAction) (*models.IssuedCode, error)
	Redemption(owner string, action models.CodeAction, code string, codeID int64, now time.Time) (models.CodeRedemption, error)
	Validity() time.Duration
}

// Hasher хеширование паролей.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Unusable() (string, error)
}

// PendingStore хранилище незавершённых регистраций с ограниченным временем жизни.
type PendingStore interface {
	PutPending(ctx context.Context, email string, p models.PendingSignup, ttl time.Duration) error
	// GetPending возвращает models.ErrNotFound, если записи нет или она истекла.
	GetPending(ctx context.Context, email string) (*models.PendingSignup, error)
	DeletePending(ctx context.Context, email string) error
}

// Notifier отправка писем.
type Notifier interface {
	SendCode(ctx context.Context, email, code string, validityMinutes int) error
	SendWelcome(ctx context.Context, email, name, handle string) error
}

// Result успешная аутентификация.
type Result struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	AccountID int64           `json:"account_id"`
	Handle    string          `json:"handle"`
	Role      models.Role     `json:"role"`
	SessionID string          `json:"session_id"`
	Created   bool            `json:"created,omitempty"`
	Session   *models.Session `json:"-"`
}

// Principal аутентифицированный владелец запроса.
type Principal struct {
	AccountID int64
	Handle    string
	Role      models.Role
	SessionID string
}

// Deps зависимости Service.
type Deps struct {
	Credentials Credentials
	Sessions    Sessions
	Codes       Codes
	Tokens      jwt.Maker
	Hasher      Hasher
	Pending     PendingStore
	Notifier    Notifier
	// PendingMargin запас времени жизни незавершённой регистрации сверх срока кода.
	PendingMargin time.Duration
	Log           *slog.Logger
}

// Service оркестратор аутентификации.
type Service struct {
	credentials   Credentials
	sessions      Sessions
	codes         Codes
	tokens        jwt.Maker
	hasher        Hasher
	pending       PendingStore
	notifier      Notifier
	pendingMargin time.Duration
	signupLocks   *keylock.Locker
	log           *slog.Logger
	now           func() time.Time
}

// New создаёт Service.
func New(d Deps) *Service {
	return &Service{
		credentials:   d.Credentials,
		sessions:      d.Sessions,
		codes:         d.Codes,
		tokens:        d.Tokens,
		hasher:        d.Hasher,
		pending:       d.Pending,
		notifier:      d.Notifier,
		pendingMargin: d.PendingMargin,
		signupLocks:   keylock.New(),
		log:           d.Log,
		now:           time.Now,
	}
}

// Login проверяет пароль, устанавливает сессию по политике роли и выпускает токен.
func (s *Service) Login(ctx context.Context, handle, plaintext, deviceID string, deviceType models.DeviceType) (*Result, error) {
	const op = "auth.Login"
	now := s.now().UTC()

	account, err := s.credentials.VerifyLogin(ctx, handle, plaintext, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.issue(ctx, account, deviceID, deviceType, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Authenticate проверяет токен и активность сессии, на которую он ссылается.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	const op = "auth.Authenticate"
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sessions.Validate(ctx, claims.SessionID, claims.AccountID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Principal{
		AccountID: claims.AccountID,
		Handle:    claims.Subject,
		Role:      models.Role(claims.Role),
		SessionID: claims.SessionID,
	}, nil
}

// Logout завершает текущую сессию.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	const op = "auth.Logout"
	if err := s.sessions.Deactivate(ctx, p.SessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("logged out", sl.Op(op), sl.Account(p.AccountID), slog.String("session_id", p.SessionID))
	return nil
}

// LogoutAll завершает все сессии аккаунта.
func (s *Service) LogoutAll(ctx context.Context, p *Principal) (int64, error) {
	const op = "auth.LogoutAll"
	n, err := s.sessions.DeactivateAll(ctx, p.AccountID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Unlock снимает блокировку аккаунта.
func (s *Service) Unlock(ctx context.Context, handle string) error {
	const op = "auth.Unlock"
	if err := s.credentials.Unlock(ctx, handle, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// issue устанавливает сессию и выпускает токен, ссылающийся на неё.
func (s *Service) issue(ctx context.Context, account *models.Account, deviceID string, deviceType models.DeviceType, now time.Time) (*Result, error) {
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	session, err := s.sessions.Establish(ctx, account, deviceID, deviceType, now)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.GenerateToken(account.Handle, account.ID, string(account.Role), session.ID)
	if err != nil {
		s.log.Error("failed to sign token", sl.Account(account.ID), sl.Err(err))
		if derr := s.sessions.Deactivate(ctx, session.ID); derr != nil {
			s.log.Warn("failed to roll back session", slog.String("session_id", session.ID), sl.Err(derr))
		}
		return nil, errors.Join(models.ErrInternal, err)
	}
	return &Result{
		Token:     token,
		ExpiresAt: expiresAt,
		AccountID: account.ID,
		Handle:    account.Handle,
		Role:      account.Role,
		SessionID: session.ID,
		Session:   session,
	}, nil
}
