package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/storage/memory"
)

type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *capturingNotifier) SendCode(_ context.Context, email, code string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = code
	return nil
}

func (n *capturingNotifier) SendWelcome(context.Context, string, string, string) error {
	return nil
}

func (n *capturingNotifier) code(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Env:                 config.EnvLocal,
		CollaboratorTimeout: time.Second,
		PlanCacheTTL:        time.Minute,
	}
	cfg.AddressHTTP = ":0"
	cfg.TimeoutHTTP = 5 * time.Second
	cfg.JWTSecretKey = "test-secret"
	cfg.TokenTTL = time.Hour
	cfg.Auth = config.AuthPolicy{
		LockThreshold:       5,
		CodeLength:          6,
		CodeValidity:        15 * time.Minute,
		BcryptCost:          bcrypt.MinCost,
		PendingSignupMargin: 5 * time.Minute,
	}
	cfg.Session.IdleTimeout = 30 * time.Minute
	cfg.RateLimit = config.RateLimit{RPS: 1000, Burst: 1000}
	return cfg
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (c apiClient) do(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var resp map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestApp_EndToEnd(t *testing.T) {
	store := memory.New()
	notifier := &capturingNotifier{codes: map[string]string{}}
	backend := &Backend{Store: store, Pending: store, Notifier: notifier}

	app := Build(testConfig(), newNoopLogger(), backend)
	api := apiClient{t: t, handler: app.Handler()}

	status, _ := api.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"handle":     "student1",
		"password":   "correct-horse",
		"first_name": "Ann",
		"last_name":  "Lee",
		"email":      "ann@example.com",
	})
	require.Equal(t, http.StatusAccepted, status)
	code := notifier.code("ann@example.com")
	require.Len(t, code, 6)

	status, resp := api.do(http.MethodPost, "/api/v1/auth/signup/verify", "", map[string]any{
		"email": "ann@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusCreated, status)
	data := resp["data"].(map[string]any)
	firstToken := data["token"].(string)
	accountID := int64(data["account_id"].(float64))

	status, _ = api.do(http.MethodPost, "/api/v1/auth/signup/verify", "", map[string]any{
		"email": "ann@example.com",
		"code":  code,
	})
	assert.Equal(t, http.StatusGone, status, "pending signup is removed after account creation")

	classID := store.AddClass()
	subjectID := store.AddSubject(classID)
	topicID := store.AddTopic(subjectID)
	store.AddPlan(models.SubscriptionPlan{TargetType: models.TargetSubject, TargetID: subjectID, DurationDays: 30, GracePeriodDays: 5, Active: true})
	store.AddInstance(models.SubscriptionInstance{
		AccountID:    accountID,
		TargetType:   models.TargetSubject,
		TargetID:     subjectID,
		SubscribedAt: time.Now().Add(-10 * 24 * time.Hour),
		Active:       true,
	})

	status, resp = api.do(http.MethodGet, "/api/v1/access/TOPIC/"+itoa(topicID), firstToken, nil)
	require.Equal(t, http.StatusOK, status)
	decision := resp["data"].(map[string]any)
	assert.Equal(t, true, decision["granted"])
	assert.Equal(t, "SUBJECT_SUBSCRIPTION", decision["via"])
	assert.InDelta(t, 20, decision["remaining_days"], 0)

	status, resp = api.do(http.MethodGet, "/api/v1/subscriptions/me", firstToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 1)

	status, resp = api.do(http.MethodGet, "/api/v1/accounts/me", firstToken, nil)
	require.Equal(t, http.StatusOK, status)
	me := resp["data"].(map[string]any)
	assert.Equal(t, "student1", me["account"].(map[string]any)["handle"])
	assert.Equal(t, "Lee", me["profile"].(map[string]any)["last_name"])

	// Вход с другого устройства вытесняет первую сессию студента.
	status, resp = api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"handle":      "student1",
		"password":    "correct-horse",
		"device_type": "MOBILE",
	})
	require.Equal(t, http.StatusOK, status)
	secondToken := resp["data"].(map[string]any)["token"].(string)

	status, _ = api.do(http.MethodGet, "/api/v1/subscriptions/me", firstToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(http.MethodGet, "/api/v1/subscriptions/me", secondToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, "/api/v1/admin/accounts/student1/unlock", secondToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, "/api/v1/auth/logout", secondToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/api/v1/subscriptions/me", secondToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `identity_login_attempts_total{outcome="success"} 1`)
}

func TestApp_LockoutAndAdminUnlock(t *testing.T) {
	store := memory.New()
	backend := &Backend{Store: store, Pending: store, Notifier: &capturingNotifier{codes: map[string]string{}}}
	cfg := testConfig()
	cfg.Auth.LockThreshold = 3
	app := Build(cfg, newNoopLogger(), backend)
	api := apiClient{t: t, handler: app.Handler()}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateAccount(context.Background(), models.Account{
		Handle: "root", Email: "root@example.com", PasswordHash: string(hash),
		Role: models.RoleAdmin, SignupMethod: models.SignupPassword,
	}, models.Profile{FirstName: "Root", Email: "root@example.com"})
	require.NoError(t, err)
	hash, err = bcrypt.GenerateFromPassword([]byte("student-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateAccount(context.Background(), models.Account{
		Handle: "bob", Email: "bob@example.com", PasswordHash: string(hash),
		Role: models.RoleStudent, SignupMethod: models.SignupPassword,
	}, models.Profile{FirstName: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	wantStatuses := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusLocked, http.StatusLocked}
	for i, want := range wantStatuses {
		status, _ := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"handle": "bob", "password": "wrong"})
		assert.Equal(t, want, status, "attempt %d", i+1)
	}
	status, _ := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"handle": "bob", "password": "student-pass"})
	assert.Equal(t, http.StatusLocked, status, "correct password does not bypass lockout")

	status, resp := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"handle": "root", "password": "admin-pass"})
	require.Equal(t, http.StatusOK, status)
	adminToken := resp["data"].(map[string]any)["token"].(string)

	status, _ = api.do(http.MethodPost, "/api/v1/admin/accounts/bob/unlock", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"handle": "bob", "password": "student-pass"})
	assert.Equal(t, http.StatusOK, status)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
