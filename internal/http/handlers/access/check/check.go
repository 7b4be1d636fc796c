// Package check отвечает, открыт ли аккаунту доступ к классу, предмету или теме.
package check

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Service проверка доступа.
type Service interface {
	CheckAccess(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64, now time.Time) (*models.AccessDecision, error)
}

// Handler обрабатывает проверку доступа.
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
// @Summary Проверка доступа к контенту
// @Description Доступ к теме открывается подпиской на тему или на её предмет.
// @Tags Access
// @Produce  json
// @Security BearerAuth
// @Param targetType path string true "CLASS, SUBJECT или TOPIC"
// @Param targetID path int true "Идентификатор цели"
// @Success 200 {object} response.Response{data=models.AccessDecision} "Решение"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Цель не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access/{targetType}/{targetID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.check"

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

	targetType := models.TargetType(strings.ToUpper(chi.URLParam(r, "targetType")))
	if !targetType.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("target type must be one of CLASS, SUBJECT, TOPIC"))
		return
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "targetID"), 10, 64)
	if err != nil || targetID <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid target id"))
		return
	}

	decision, err := h.service.CheckAccess(r.Context(), p.AccountID, targetType, targetID, h.now())
	if err != nil {
		status := response.WriteError(w, r, err)
		log.Warn("access check failed", sl.Account(p.AccountID), slog.Int("status", status), sl.Err(err))
		return
	}

	log.Debug("access checked",
		sl.Account(p.AccountID),
		slog.String("target_type", string(targetType)),
		slog.Int64("target_id", targetID),
		slog.Bool("granted", decision.Granted),
	)
	render.JSON(w, r, response.OKWithData(decision))
}
