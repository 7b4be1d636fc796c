package check

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) CheckAccess(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64, now time.Time) (*models.AccessDecision, error) {
	args := m.Called(ctx, accountID, targetType, targetID, now)
	res, _ := args.Get(0).(*models.AccessDecision)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCheckHandler_ServeHTTP(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	days := 5

	tests := []struct {
		name       string
		path       string
		setup      func(m *ServiceMock)
		wantStatus int
		wantVia    string
	}{
		{
			name: "granted via subject",
			path: "/access/topic/12",
			setup: func(m *ServiceMock) {
				m.On("CheckAccess", mock.Anything, int64(7), models.TargetTopic, int64(12), now).
					Return(&models.AccessDecision{Granted: true, Status: models.StatusActive, RemainingDays: &days, Via: models.ViaSubject}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantVia:    string(models.ViaSubject),
		},
		{
			name:       "unknown target type",
			path:       "/access/course/12",
			setup:      func(*ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad id",
			path:       "/access/SUBJECT/abc",
			setup:      func(*ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing target",
			path: "/access/SUBJECT/99",
			setup: func(m *ServiceMock) {
				m.On("CheckAccess", mock.Anything, int64(7), models.TargetSubject, int64(99), now).
					Return(nil, models.ErrTargetNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setup(svc)

			h := New(newNoopLogger(), svc)
			h.now = func() time.Time { return now }

			router := chi.NewRouter()
			router.With(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					ctx := middlewarectx.WithPrincipal(r.Context(), &auth.Principal{AccountID: 7, Role: models.RoleStudent})
					next.ServeHTTP(w, r.WithContext(ctx))
				})
			}).Get("/access/{targetType}/{targetID}", h.ServeHTTP)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantVia != "" {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				data := resp["data"].(map[string]any)
				assert.Equal(t, tt.wantVia, data["via"])
				assert.Equal(t, true, data["granted"])
				assert.InDelta(t, 5, data["remaining_days"], 0)
			}
			svc.AssertExpectations(t)
		})
	}
}
