// Package unlock снимает блокировку аккаунта. Доступно только администратору.
package unlock

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
)

// Service снятие блокировки.
type Service interface {
	Unlock(ctx context.Context, handle string) error
}

// Handler обрабатывает снятие блокировки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Снятие блокировки
// @Description Сбрасывает счётчик неудачных попыток и флаг блокировки.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param handle path string true "Логин"
// @Success 200 {object} response.Response "Блокировка снята"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/accounts/{handle}/unlock [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.unlock"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	handle := chi.URLParam(r, "handle")
	if handle == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("handle is required"))
		return
	}

	if err := h.service.Unlock(r.Context(), handle); err != nil {
		status := response.WriteError(w, r, err)
		log.Warn("unlock failed", slog.String("handle", handle), slog.Int("status", status), sl.Err(err))
		return
	}

	admin, _ := middlewarectx.PrincipalFrom(r.Context())
	if admin != nil {
		log = log.With(slog.String("admin", admin.Handle))
	}
	log.Info("account unlocked", slog.String("handle", handle))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"handle":   handle,
		"unlocked": true,
	}))
}
