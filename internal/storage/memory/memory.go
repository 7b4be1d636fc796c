// Package memory хранит аккаунты, сессии, коды и подписки в памяти процесса.
// Используется в тестах и в окружении local. Каждая операция выполняется под
// одним мьютексом, поэтому даёт те же гарантии атомарности, что и PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

type pendingEntry struct {
	value     models.PendingSignup
	expiresAt time.Time
}

// Store хранилище в памяти.
type Store struct {
	mu sync.RWMutex

	accounts  map[int64]*models.Account
	profiles  map[int64]models.Profile
	sessions  map[string]*models.Session
	codes     []*models.VerificationCode
	classes   map[int64]bool
	subjects  map[int64]int64 // предмет -> класс
	topics    map[int64]int64 // тема -> предмет
	plans     []models.SubscriptionPlan
	instances []models.SubscriptionInstance
	pending   map[string]pendingEntry

	nextID int64
	now    func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		accounts: make(map[int64]*models.Account),
		profiles: make(map[int64]models.Profile),
		sessions: make(map[string]*models.Session),
		classes:  make(map[int64]bool),
		subjects: make(map[int64]int64),
		topics:   make(map[int64]int64),
		pending:  make(map[string]pendingEntry),
		now:      time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func done(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAccountByHandle возвращает копию аккаунта по логину.
func (s *Store) GetAccountByHandle(ctx context.Context, handle string) (*models.Account, error) {
	return s.findAccount(ctx, "memory.GetAccountByHandle", func(a *models.Account) bool { return a.Handle == handle })
}

// GetAccountByEmail возвращает копию аккаунта по email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findAccount(ctx, "memory.GetAccountByEmail", func(a *models.Account) bool {
		return strings.EqualFold(a.Email, email)
	})
}

// GetAccount возвращает копию аккаунта по идентификатору.
func (s *Store) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return s.findAccount(ctx, "memory.GetAccount", func(a *models.Account) bool { return a.ID == id })
}

func (s *Store) findAccount(ctx context.Context, op string, match func(*models.Account) bool) (*models.Account, error) {
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
}

// HandleExists сообщает, занят ли логин.
func (s *Store) HandleExists(ctx context.Context, handle string) (bool, error) {
	_, err := s.GetAccountByHandle(ctx, handle)
	return existsResult(err)
}

// EmailExists сообщает, занят ли email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetAccountByEmail(ctx, email)
	return existsResult(err)
}

func existsResult(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// CreateAccount создаёт аккаунт и профиль.
func (s *Store) CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (int64, error) {
	const op = "memory.CreateAccount"
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.insertAccount(account, profile)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CompleteSignup погашает код и создаёт аккаунт с профилем под одной блокировкой.
// Если аккаунт создать нельзя, код остаётся активным.
func (s *Store) CompleteSignup(ctx context.Context, r models.CodeRedemption, account models.Account, profile models.Profile) (int64, error) {
	const op = "memory.CompleteSignup"
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.matchCode(r.Owner, r.Action, r.CodeHash, r.Now)
	if code == nil {
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if r.CodeID != 0 && code.ID != r.CodeID {
		return 0, fmt.Errorf("%s: %w", op, models.ErrSignupSessionExpired)
	}
	id, err := s.insertAccount(account, profile)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	code.Status = models.CodeUsed
	return id, nil
}

func (s *Store) insertAccount(account models.Account, profile models.Profile) (int64, error) {
	for _, a := range s.accounts {
		if a.Handle == account.Handle || strings.EqualFold(a.Email, account.Email) {
			return 0, models.ErrDuplicateIdentity
		}
	}
	account.ID = s.id()
	account.FailedAttempts = 0
	account.Locked = false
	account.UpdatedAt = account.CreatedAt
	s.accounts[account.ID] = &account
	profile.AccountID = account.ID
	s.profiles[account.ID] = profile
	return account.ID, nil
}

// GetProfile возвращает профиль аккаунта.
func (s *Store) GetProfile(ctx context.Context, accountID int64) (*models.Profile, error) {
	const op = "memory.GetProfile"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[accountID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return &p, nil
}

// RecordFailedAttempt увеличивает счётчик и блокирует аккаунт на пороге.
func (s *Store) RecordFailedAttempt(ctx context.Context, accountID int64, threshold int, now time.Time) (models.AttemptResult, error) {
	const op = "memory.RecordFailedAttempt"
	if err := done(ctx, op); err != nil {
		return models.AttemptResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return models.AttemptResult{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if a.Locked {
		return models.AttemptResult{}, fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}
	a.FailedAttempts++
	a.Locked = a.FailedAttempts >= threshold
	a.LastAttemptAt = &now
	a.UpdatedAt = now
	return models.AttemptResult{FailedAttempts: a.FailedAttempts, Locked: a.Locked}, nil
}

// RecordSuccessfulLogin сбрасывает счётчик, если аккаунт не заблокирован.
func (s *Store) RecordSuccessfulLogin(ctx context.Context, accountID int64, now time.Time) error {
	const op = "memory.RecordSuccessfulLogin"
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if a.Locked {
		return fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}
	a.FailedAttempts = 0
	a.LastLoginAt = &now
	a.LastAttemptAt = &now
	a.UpdatedAt = now
	return nil
}

// Unlock снимает блокировку.
func (s *Store) Unlock(ctx context.Context, handle string, now time.Time) error {
	return s.mutateByHandle(ctx, "memory.Unlock", handle, func(a *models.Account) {
		a.Locked = false
		a.FailedAttempts = 0
		a.UpdatedAt = now
	})
}

// SetRole меняет роль аккаунта. При смене роли все активные сессии
// аккаунта закрываются, чтобы выданные токены перестали действовать.
func (s *Store) SetRole(ctx context.Context, handle string, role models.Role, now time.Time) error {
	return s.mutateByHandle(ctx, "memory.SetRole", handle, func(a *models.Account) {
		if a.Role == role {
			return
		}
		a.Role = role
		a.UpdatedAt = now
		for _, sess := range s.sessions {
			if sess.AccountID == a.ID {
				sess.Active = false
			}
		}
	})
}

func (s *Store) mutateByHandle(ctx context.Context, op, handle string, fn func(*models.Account)) error {
	if err := done(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Handle == handle {
			fn(a)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, models.ErrNotFound)
}

// sortedSessions возвращает копии сессий, отфильтрованные match, новые первыми.
func (s *Store) sortedSessions(match func(*models.Session) bool) []models.Session {
	var out []models.Session
	for _, sess := range s.sessions {
		if match(sess) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginTime.After(out[j].LoginTime) })
	return out
}
