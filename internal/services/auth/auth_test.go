package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/edu-identity/internal/lib/jwt"
	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/services/credentials"
	"github.com/magabrotheeeer/edu-identity/internal/services/session"
	"github.com/magabrotheeeer/edu-identity/internal/services/verification"
	"github.com/magabrotheeeer/edu-identity/internal/storage/memory"
)

const lockThreshold = 5

type NotifierMock struct {
	mock.Mock
	mu    sync.Mutex
	codes map[string]string
}

func (m *NotifierMock) SendCode(ctx context.Context, email, code string, validityMinutes int) error {
	m.mu.Lock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[email] = code
	m.mu.Unlock()
	return m.Called(ctx, email, code, validityMinutes).Error(0)
}

func (m *NotifierMock) SendWelcome(ctx context.Context, email, name, handle string) error {
	return m.Called(ctx, email, name, handle).Error(0)
}

func (m *NotifierMock) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *NotifierMock
	hasher   *password.Hasher
}

// flakyAccounts отказывает в завершении регистрации заданное число раз.
type flakyAccounts struct {
	*memory.Store
	failures int
}

func (f *flakyAccounts) CompleteSignup(ctx context.Context, r models.CodeRedemption, account models.Account, profile models.Profile) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("storage: connection reset")
	}
	return f.Store.CompleteSignup(ctx, r, account, profile)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, func(s *memory.Store) credentials.Repository { return s })
}

func newFixtureWith(t *testing.T, accounts func(*memory.Store) credentials.Repository) *fixture {
	t.Helper()
	log := newNoopLogger()
	m := metrics.NewNop()
	store := memory.New()
	hasher := password.NewHasher(bcrypt.MinCost)
	notifier := new(NotifierMock)

	svc := New(Deps{
		Credentials:   credentials.NewStore(accounts(store), hasher, lockThreshold, m, log),
		Sessions:      session.NewManager(store, time.Hour, m, log),
		Codes:         verification.NewIssuer(store, 6, 15*time.Minute, m, log),
		Tokens:        jwt.NewJWTMaker("test-secret", time.Hour),
		Hasher:        hasher,
		Pending:       store,
		Notifier:      notifier,
		PendingMargin: 5 * time.Minute,
		Log:           log,
	})
	return &fixture{svc: svc, store: store, notifier: notifier, hasher: hasher}
}

func (f *fixture) seed(t *testing.T, handle, pass string, role models.Role, method models.SignupMethod) int64 {
	t.Helper()
	digest, err := f.hasher.Hash(pass)
	require.NoError(t, err)
	id, err := f.store.CreateAccount(context.Background(), models.Account{
		Handle: handle, Email: handle + "@example.com", PasswordHash: digest, Role: role, SignupMethod: method,
	}, models.Profile{FirstName: handle})
	require.NoError(t, err)
	return id
}

func signupRequest(handle, email string) models.SignupRequest {
	return models.SignupRequest{
		Handle:    handle,
		Password:  "s3cret-pass",
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     email,
	}
}

func TestService_LoginSingleDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "alice", "correct-horse", models.RoleStudent, models.SignupPassword)

	first, err := f.svc.Login(ctx, "alice", "correct-horse", "laptop", models.DeviceWeb)
	require.NoError(t, err)
	assert.Equal(t, id, first.AccountID)
	assert.Equal(t, models.RoleStudent, first.Role)
	assert.NotEmpty(t, first.Token)
	assert.True(t, first.Session.Active)

	p, err := f.svc.Authenticate(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Handle)
	assert.Equal(t, first.SessionID, p.SessionID)

	second, err := f.svc.Login(ctx, "alice", "correct-horse", "phone", models.DeviceMobile)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, first.Token)
	assert.True(t, errors.Is(err, models.ErrSessionInactive), "first session superseded")

	_, err = f.svc.Authenticate(ctx, second.Token)
	assert.NoError(t, err)

	active, err := f.store.ListActiveSessions(ctx, id)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestService_LoginAdminMultiDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "root", "admin-pass", models.RoleAdmin, models.SignupPassword)

	first, err := f.svc.Login(ctx, "root", "admin-pass", "desk", models.DeviceDesktop)
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "root", "admin-pass", "tab", models.DeviceTablet)
	require.NoError(t, err)

	for _, res := range []*Result{first, second} {
		_, err := f.svc.Authenticate(ctx, res.Token)
		assert.NoError(t, err)
	}

	p, err := f.svc.Authenticate(ctx, first.Token)
	require.NoError(t, err)
	n, err := f.svc.LogoutAll(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = f.svc.Authenticate(ctx, second.Token)
	assert.True(t, errors.Is(err, models.ErrSessionInactive))
}

func TestService_LoginLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", "correct-horse", models.RoleStudent, models.SignupPassword)

	for i := 1; i < lockThreshold; i++ {
		_, err := f.svc.Login(ctx, "alice", "nope", "d", models.DeviceWeb)
		require.True(t, errors.Is(err, models.ErrInvalidCredentials), "attempt %d", i)
	}
	_, err := f.svc.Login(ctx, "alice", "nope", "d", models.DeviceWeb)
	assert.True(t, errors.Is(err, models.ErrAccountLocked))

	_, err = f.svc.Login(ctx, "alice", "correct-horse", "d", models.DeviceWeb)
	assert.True(t, errors.Is(err, models.ErrAccountLocked))

	require.NoError(t, f.svc.Unlock(ctx, "alice"))
	_, err = f.svc.Login(ctx, "alice", "correct-horse", "d", models.DeviceWeb)
	assert.NoError(t, err)

	_, err = f.svc.Login(ctx, "ghost", "whatever", "d", models.DeviceWeb)
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))
}

func TestService_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", "correct-horse", models.RoleStudent, models.SignupPassword)

	res, err := f.svc.Login(ctx, "alice", "correct-horse", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.DeviceID, "device id generated")
	assert.Equal(t, models.DeviceWeb, res.Session.DeviceType)

	p, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, p))

	_, err = f.svc.Authenticate(ctx, res.Token)
	assert.True(t, errors.Is(err, models.ErrSessionInactive))

	_, err = f.svc.Authenticate(ctx, "not-a-token")
	assert.True(t, errors.Is(err, jwt.ErrInvalidToken))
}

func TestService_Signup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("SendCode", mock.Anything, "a@b.com", mock.Anything, 15).Return(nil).Once()
	f.notifier.On("SendWelcome", mock.Anything, "a@b.com", "Ann", "annlee").Return(nil).Once()

	init, err := f.svc.InitiateSignup(ctx, signupRequest("annlee", "A@B.com"))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", init.Email)
	assert.Equal(t, 15, init.CodeValidityMinutes)

	pending, err := f.store.GetPending(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Empty(t, pending.Request.Password)
	assert.True(t, f.hasher.Verify("s3cret-pass", pending.PasswordHash))

	res, err := f.svc.VerifySignup(ctx, "a@b.com", f.notifier.lastCode("a@b.com"), "", "")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "annlee", res.Handle)
	assert.Equal(t, models.RoleStudent, res.Role)

	acc, err := f.store.GetAccount(ctx, res.AccountID)
	require.NoError(t, err)
	assert.Equal(t, models.SignupPassword, acc.SignupMethod)
	require.NotNil(t, acc.PasswordExpiry)

	_, err = f.store.GetPending(ctx, "a@b.com")
	assert.True(t, errors.Is(err, models.ErrNotFound), "pending removed")

	login, err := f.svc.Login(ctx, "annlee", "s3cret-pass", "d", models.DeviceWeb)
	require.NoError(t, err)
	assert.Equal(t, res.AccountID, login.AccountID)
	f.notifier.AssertExpectations(t)
}

func TestService_SignupReissueInvalidatesFirstCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("SendCode", mock.Anything, "a@b.com", mock.Anything, 15).Return(nil).Twice()

	_, err := f.svc.InitiateSignup(ctx, signupRequest("annlee", "a@b.com"))
	require.NoError(t, err)
	firstCode := f.notifier.lastCode("a@b.com")

	_, err = f.svc.InitiateSignup(ctx, signupRequest("annlee", "a@b.com"))
	require.NoError(t, err)
	secondCode := f.notifier.lastCode("a@b.com")
	if firstCode == secondCode {
		t.Skip("random codes collided")
	}

	_, err = f.svc.VerifySignup(ctx, "a@b.com", firstCode, "", "")
	assert.True(t, errors.Is(err, models.ErrInvalidOrExpiredCode))

	codes, err := f.store.ListCodes(ctx, "a@b.com", models.ActionSignup)
	require.NoError(t, err)
	active := 0
	for _, c := range codes {
		if c.Status == models.CodeActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestService_VerifyRetryAfterStorageFailure(t *testing.T) {
	f := newFixtureWith(t, func(s *memory.Store) credentials.Repository {
		return &flakyAccounts{Store: s, failures: 1}
	})
	ctx := context.Background()
	f.notifier.On("SendCode", mock.Anything, "a@b.com", mock.Anything, 15).Return(nil).Once()
	f.notifier.On("SendWelcome", mock.Anything, "a@b.com", "Ann", "annlee").Return(nil).Once()

	_, err := f.svc.InitiateSignup(ctx, signupRequest("annlee", "a@b.com"))
	require.NoError(t, err)
	code := f.notifier.lastCode("a@b.com")

	_, err = f.svc.VerifySignup(ctx, "a@b.com", code, "", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrInvalidOrExpiredCode))

	codes, err := f.store.ListCodes(ctx, "a@b.com", models.ActionSignup)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, models.CodeActive, codes[0].Status, "code survives failed account write")

	res, err := f.svc.VerifySignup(ctx, "a@b.com", code, "", "")
	require.NoError(t, err)
	assert.True(t, res.Created)

	codes, err = f.store.ListCodes(ctx, "a@b.com", models.ActionSignup)
	require.NoError(t, err)
	assert.Equal(t, models.CodeUsed, codes[0].Status)
	f.notifier.AssertExpectations(t)
}

func TestService_VerifyWithoutPendingKeepsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("SendCode", mock.Anything, "a@b.com", mock.Anything, 15).Return(nil).Once()

	_, err := f.svc.InitiateSignup(ctx, signupRequest("annlee", "a@b.com"))
	require.NoError(t, err)
	require.NoError(t, f.store.DeletePending(ctx, "a@b.com"))

	_, err = f.svc.VerifySignup(ctx, "a@b.com", f.notifier.lastCode("a@b.com"), "", "")
	assert.True(t, errors.Is(err, models.ErrSignupSessionExpired))

	codes, err := f.store.ListCodes(ctx, "a@b.com", models.ActionSignup)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, models.CodeActive, codes[0].Status)
}

func TestService_VerifyExpiredPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	f.store.SetClock(func() time.Time { return now })
	f.notifier.On("SendCode", mock.Anything, "a@b.com", mock.Anything, 15).Return(nil).Once()

	_, err := f.svc.InitiateSignup(ctx, signupRequest("annlee", "a@b.com"))
	require.NoError(t, err)

	now = now.Add(21 * time.Minute)
	_, err = f.svc.VerifySignup(ctx, "a@b.com", f.notifier.lastCode("a@b.com"), "", "")
	assert.True(t, errors.Is(err, models.ErrSignupSessionExpired))
}

func TestService_SignupRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "taken", "pass-pass", models.RoleStudent, models.SignupPassword)

	_, err := f.svc.InitiateSignup(ctx, signupRequest("taken", "free@example.com"))
	assert.True(t, errors.Is(err, models.ErrDuplicateIdentity))

	_, err = f.svc.InitiateSignup(ctx, signupRequest("fresh", "TAKEN@example.com"))
	assert.True(t, errors.Is(err, models.ErrDuplicateIdentity))

	req := signupRequest("boss", "boss@example.com")
	req.Role = models.RoleAdmin
	_, err = f.svc.InitiateSignup(ctx, req)
	assert.True(t, errors.Is(err, models.ErrRoleNotAllowed))

	long := signupRequest("yuri", "y@example.com")
	long.Password = strings.Repeat("пароль", 7)
	_, err = f.svc.InitiateSignup(ctx, long)
	assert.True(t, errors.Is(err, password.ErrTooLong))
	assert.False(t, errors.Is(err, models.ErrInternal), "long password is a client error")

	f.notifier.On("SendCode", mock.Anything, "x@example.com", mock.Anything, 15).Return(errors.New("broker down")).Once()
	_, err = f.svc.InitiateSignup(ctx, signupRequest("xavier", "x@example.com"))
	assert.Error(t, err)
}

func TestService_WelcomeFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("SendCode", mock.Anything, "a@b.com", mock.Anything, 15).Return(nil).Once()
	f.notifier.On("SendWelcome", mock.Anything, "a@b.com", "Ann", "annlee").Return(errors.New("smtp down")).Once()

	_, err := f.svc.InitiateSignup(ctx, signupRequest("annlee", "a@b.com"))
	require.NoError(t, err)

	res, err := f.svc.VerifySignup(ctx, "a@b.com", f.notifier.lastCode("a@b.com"), "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestService_FederatedAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("SendWelcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.FederatedAuth(ctx, models.FederatedIdentity{Email: "John.Doe@Mail.com", ExternalID: "g-1", FirstName: "John"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "johndoe", res.Handle)

	profile, err := f.store.GetProfile(ctx, res.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "g-1", profile.ExternalID)

	again, err := f.svc.FederatedAuth(ctx, models.FederatedIdentity{Email: "john.doe@mail.com", ExternalID: "g-1"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.AccountID, again.AccountID)

	other, err := f.svc.FederatedAuth(ctx, models.FederatedIdentity{Email: "john_doe@other.org"})
	require.NoError(t, err)
	assert.Equal(t, "johndoe1", other.Handle)

	_, err = f.svc.Login(ctx, "johndoe", "", "d", models.DeviceWeb)
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials), "federated account has no usable password")
}

func TestService_FederatedRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", "correct-horse", models.RoleStudent, models.SignupPassword)
	id := f.seed(t, "fed", "unused-pass", models.RoleStudent, models.SignupFederated)
	for range lockThreshold {
		_, err := f.store.RecordFailedAttempt(ctx, id, lockThreshold, time.Now())
		require.NoError(t, err)
	}

	_, err := f.svc.FederatedAuth(ctx, models.FederatedIdentity{Email: "alice@example.com"})
	assert.True(t, errors.Is(err, models.ErrSignupMethodMismatch))

	_, err = f.svc.FederatedAuth(ctx, models.FederatedIdentity{Email: "fed@example.com"})
	assert.True(t, errors.Is(err, models.ErrAccountLocked))
}

func TestHandleBase(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john.doe@mail.com", "johndoe"},
		{"Jane_Smith+tag@x.org", "janesmithtag"},
		{"...@x.org", "user"},
		{"ünïcode@x.org", "ncode"},
		{"noatsign", "noatsign"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, HandleBase(tt.email))
		})
	}
}
