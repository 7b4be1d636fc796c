package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/storage/memory"
)

const threshold = 5

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type HasherMock struct{ mock.Mock }

func (m *HasherMock) Verify(plaintext, digest string) bool {
	return m.Called(plaintext, digest).Bool(0)
}

func (m *HasherMock) Equalize(plaintext string) {
	m.Called(plaintext)
}

func setup(t *testing.T) (*Store, *memory.Store, int64) {
	t.Helper()
	hasher := password.NewHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	repo := memory.New()
	s := NewStore(repo, hasher, threshold, metrics.NewNop(), newNoopLogger())
	acc, err := s.Register(context.Background(), models.Account{
		Handle:       "alice",
		Email:        "Alice@Example.com",
		PasswordHash: digest,
		Role:         models.RoleStudent,
		SignupMethod: models.SignupPassword,
		CreatedAt:    now,
	}, models.Profile{FirstName: "Alice"})
	require.NoError(t, err)
	return s, repo, acc.ID
}

func TestStore_VerifyLogin_Success(t *testing.T) {
	s, _, id := setup(t)

	acc, err := s.VerifyLogin(context.Background(), "alice", "correct-horse", now)
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)
	assert.Zero(t, acc.FailedAttempts)
	require.NotNil(t, acc.LastLoginAt)
	assert.Equal(t, now, *acc.LastLoginAt)
}

func TestStore_VerifyLogin_UnknownHandle(t *testing.T) {
	hasher := new(HasherMock)
	hasher.On("Equalize", "pw").Once()
	s := NewStore(memory.New(), hasher, threshold, metrics.NewNop(), newNoopLogger())

	_, err := s.VerifyLogin(context.Background(), "ghost", "pw", now)
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))
	hasher.AssertExpectations(t)
}

func TestStore_VerifyLogin_LockAtThreshold(t *testing.T) {
	s, repo, id := setup(t)
	ctx := context.Background()

	for i := 1; i < threshold; i++ {
		_, err := s.VerifyLogin(ctx, "alice", "wrong", now)
		require.True(t, errors.Is(err, models.ErrInvalidCredentials), "attempt %d: %v", i, err)
	}
	acc, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, threshold-1, acc.FailedAttempts)
	assert.False(t, acc.Locked)

	_, err = s.VerifyLogin(ctx, "alice", "wrong", now)
	assert.True(t, errors.Is(err, models.ErrAccountLocked))

	acc, err = repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.True(t, acc.Locked)
	assert.Equal(t, threshold, acc.FailedAttempts)

	_, err = s.VerifyLogin(ctx, "alice", "correct-horse", now)
	assert.True(t, errors.Is(err, models.ErrAccountLocked), "locked account rejects correct password")
}

func TestStore_VerifyLogin_LockedSkipsPasswordCheck(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	id, err := repo.CreateAccount(ctx, models.Account{Handle: "bob", Email: "bob@example.com"}, models.Profile{})
	require.NoError(t, err)
	for range threshold {
		_, err = repo.RecordFailedAttempt(ctx, id, threshold, now)
		require.NoError(t, err)
	}

	hasher := new(HasherMock)
	s := NewStore(repo, hasher, threshold, metrics.NewNop(), newNoopLogger())
	_, err = s.VerifyLogin(ctx, "bob", "anything", now)
	assert.True(t, errors.Is(err, models.ErrAccountLocked))
	hasher.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestStore_VerifyLogin_SuccessResetsCounter(t *testing.T) {
	s, repo, id := setup(t)
	ctx := context.Background()

	for range threshold - 1 {
		_, _ = s.VerifyLogin(ctx, "alice", "wrong", now)
	}
	_, err := s.VerifyLogin(ctx, "alice", "correct-horse", now)
	require.NoError(t, err)

	acc, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, acc.FailedAttempts)

	_, err = s.VerifyLogin(ctx, "alice", "wrong", now)
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials), "counter restarted from zero")
}

func TestStore_VerifyLogin_ConcurrentFailuresNeverUndercount(t *testing.T) {
	s, repo, id := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range threshold * 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.VerifyLogin(ctx, "alice", "wrong", now)
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	acc, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.True(t, acc.Locked)
	assert.Equal(t, threshold, acc.FailedAttempts)
}

func TestStore_EnsureAvailable(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	assert.True(t, errors.Is(s.EnsureAvailable(ctx, "alice", "new@example.com"), models.ErrDuplicateIdentity))
	assert.True(t, errors.Is(s.EnsureAvailable(ctx, "newbie", "ALICE@example.com"), models.ErrDuplicateIdentity))
	assert.NoError(t, s.EnsureAvailable(ctx, "newbie", "new@example.com"))
}

func TestStore_UnlockAndSetRole(t *testing.T) {
	s, repo, id := setup(t)
	ctx := context.Background()

	for range threshold {
		_, _ = s.VerifyLogin(ctx, "alice", "wrong", now)
	}
	require.NoError(t, s.Unlock(ctx, "alice", now))

	_, err := s.VerifyLogin(ctx, "alice", "correct-horse", now)
	require.NoError(t, err)

	assert.True(t, errors.Is(s.Unlock(ctx, "ghost", now), models.ErrNotFound))

	require.NoError(t, repo.CreateSession(ctx, models.Session{ID: "sess", AccountID: id, LoginTime: now, LastActivityAt: now}))
	require.NoError(t, s.SetRole(ctx, "alice", models.RoleAdmin, now))
	assert.True(t, errors.Is(repo.TouchSession(ctx, "sess", now), models.ErrSessionInactive),
		"role change closes sessions issued with the old role")
	acc, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, acc.Role)

	assert.Error(t, s.SetRole(ctx, "alice", models.Role("ROOT"), now))
}

func TestStore_CompleteSignup(t *testing.T) {
	s, repo, _ := setup(t)
	ctx := context.Background()
	codeID, _, err := repo.IssueCode(ctx, models.VerificationCode{
		Owner: "new@example.com", Action: models.ActionSignup, CodeHash: "h1",
		GeneratedAt: now, ExpiresAt: now.Add(15 * time.Minute),
	})
	require.NoError(t, err)
	account := models.Account{
		Handle: "newbie", Email: "NEW@example.com", PasswordHash: "digest",
		Role: models.RoleStudent, SignupMethod: models.SignupPassword, CreatedAt: now,
	}
	redemption := models.CodeRedemption{
		Owner: "new@example.com", Action: models.ActionSignup, CodeHash: "h1", CodeID: codeID, Now: now,
	}

	wrong := redemption
	wrong.CodeHash = "h2"
	_, err = s.CompleteSignup(ctx, wrong, account, models.Profile{FirstName: "N"})
	assert.True(t, errors.Is(err, models.ErrInvalidOrExpiredCode))

	acc, err := s.CompleteSignup(ctx, redemption, account, models.Profile{FirstName: "N"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", acc.Email)

	profile, err := s.Profile(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", profile.Email)

	_, err = s.CompleteSignup(ctx, redemption, account, models.Profile{FirstName: "N"})
	assert.True(t, errors.Is(err, models.ErrInvalidOrExpiredCode), "replay")
}
