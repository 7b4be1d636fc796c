// Package federated реализует вход через внешнего провайдера. Токен провайдера
// проверяется на шлюзе, сюда приходят уже подтверждённые данные.
package federated

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/services/auth"
)

// Request подтверждённая провайдером личность.
type Request struct {
	Email      string            `json:"email" validate:"required,email"`
	ExternalID string            `json:"external_id" validate:"required,max=255"`
	FirstName  string            `json:"first_name" validate:"max=100"`
	LastName   string            `json:"last_name" validate:"max=100"`
	MobileNo   string            `json:"mobile_no,omitempty" validate:"omitempty,max=20"`
	Country    string            `json:"country,omitempty" validate:"max=100"`
	State      string            `json:"state,omitempty" validate:"max=100"`
	City       string            `json:"city,omitempty" validate:"max=100"`
	Address    string            `json:"address,omitempty" validate:"max=255"`
	DeviceID   string            `json:"device_id,omitempty" validate:"omitempty,max=255"`
	DeviceType models.DeviceType `json:"device_type,omitempty" validate:"omitempty,oneof=WEB MOBILE TABLET DESKTOP"`
}

func (r Request) toModel() models.FederatedIdentity {
	return models.FederatedIdentity(r)
}

// Service бизнес-логика федеративного входа.
type Service interface {
	FederatedAuth(ctx context.Context, identity models.FederatedIdentity) (*auth.Result, error)
}

// Handler обрабатывает федеративный вход.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход через внешнего провайдера
// @Description Находит аккаунт по email или создаёт новый и выполняет вход.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные провайдера"
// @Success 200 {object} response.Response{data=auth.Result} "Вход в существующий аккаунт"
// @Success 201 {object} response.Response{data=auth.Result} "Аккаунт создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email зарегистрирован с паролем"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 423 {object} response.ErrorResponse "Аккаунт заблокирован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/federated [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.federated"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.FederatedAuth(r.Context(), req.toModel())
	if err != nil {
		status := response.WriteError(w, r, err)
		log.Warn("federated auth failed", slog.Int("status", status), sl.Err(err))
		return
	}

	log.Info("federated auth success", sl.Account(res.AccountID), slog.Bool("created", res.Created))
	if res.Created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, response.OKWithData(res))
}
