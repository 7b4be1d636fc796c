// Package entitlements возвращает подписки аккаунта с вычисленным статусом.
package entitlements

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Service список подписок.
type Service interface {
	ListEntitlements(ctx context.Context, accountID int64, now time.Time) ([]models.Entitlement, error)
}

// Handler обрабатывает запрос своих подписок.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Мои подписки
// @Description Все подписки аккаунта, включая истёкшие и неактивные.
// @Tags Access
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.Entitlement} "Подписки"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.entitlements"

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

	list, err := h.service.ListEntitlements(r.Context(), p.AccountID, h.now())
	if err != nil {
		log.Error("failed to list entitlements", sl.Account(p.AccountID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Entitlement{}
	}

	render.JSON(w, r, response.OKWithData(list))
}
