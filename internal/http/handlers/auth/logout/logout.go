// Package logout завершает текущую сессию или все сессии аккаунта.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/services/auth"
)

// Service завершение сессий.
type Service interface {
	Logout(ctx context.Context, p *auth.Principal) error
	LogoutAll(ctx context.Context, p *auth.Principal) (int64, error)
}

// Handler обрабатывает выход.
type Handler struct {
	log     *slog.Logger
	service Service
	all     bool
}

// New создает Handler выхода из текущей сессии.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// NewAll создает Handler выхода со всех устройств.
func NewAll(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, all: true}
}

// ServeHTTP godoc
// @Summary Выход
// @Description /auth/logout завершает текущую сессию, /auth/logout-all все сессии аккаунта.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Сессии завершены"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/logout [post]
// @Router /auth/logout-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		log.Error("principal missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var closed int64 = 1
	var err error
	if h.all {
		closed, err = h.service.LogoutAll(r.Context(), p)
	} else {
		err = h.service.Logout(r.Context(), p)
	}
	if err != nil {
		log.Error("logout failed", sl.Account(p.AccountID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("logged out", sl.Account(p.AccountID), slog.Bool("all", h.all), slog.Int64("sessions", closed))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"sessions_closed": closed,
	}))
}
