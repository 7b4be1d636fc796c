// Package me возвращает учётную запись и профиль владельца токена.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Service чтение аккаунта и профиля.
type Service interface {
	Account(ctx context.Context, id int64) (*models.Account, error)
	Profile(ctx context.Context, accountID int64) (*models.Profile, error)
}

// Response аккаунт вместе с профилем.
type Response struct {
	Account *models.Account `json:"account"`
	Profile *models.Profile `json:"profile"`
}

// Handler обрабатывает запрос своего аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Мой аккаунт
// @Description Учётная запись и профиль владельца токена. Хеш пароля не возвращается.
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=Response} "Аккаунт и профиль"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /accounts/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.me"

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
	log = log.With(sl.Account(p.AccountID))

	account, err := h.service.Account(r.Context(), p.AccountID)
	if err != nil {
		log.Error("failed to load account", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	profile, err := h.service.Profile(r.Context(), p.AccountID)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(Response{Account: account, Profile: profile}))
}
