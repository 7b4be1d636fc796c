// Package verify реализует второй шаг регистрации: подтверждение кода из письма
// и создание учётной записи.
package verify

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

// Request код подтверждения.
type Request struct {
	Email      string            `json:"email" validate:"required,email"`
	Code       string            `json:"code" validate:"required,numeric,min=4,max=10"`
	DeviceID   string            `json:"device_id,omitempty" validate:"omitempty,max=255"`
	DeviceType models.DeviceType `json:"device_type,omitempty" validate:"omitempty,oneof=WEB MOBILE TABLET DESKTOP"`
}

// Service бизнес-логика подтверждения регистрации.
type Service interface {
	VerifySignup(ctx context.Context, email, code, deviceID string, deviceType models.DeviceType) (*auth.Result, error)
}

// Handler обрабатывает подтверждение регистрации.
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
// @Summary Подтверждение регистрации
// @Description Погашает код из письма, создаёт аккаунт и сразу выполняет вход.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Email и код"
// @Success 201 {object} response.Response{data=auth.Result} "Аккаунт создан"
// @Failure 400 {object} response.ErrorResponse "Код неверен или истёк"
// @Failure 409 {object} response.ErrorResponse "Логин или email заняты"
// @Failure 410 {object} response.ErrorResponse "Регистрация истекла, начните заново"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/signup/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"

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

	res, err := h.service.VerifySignup(r.Context(), req.Email, req.Code, req.DeviceID, req.DeviceType)
	if err != nil {
		status := response.WriteError(w, r, err)
		log.Warn("signup verification failed", slog.Int("status", status), sl.Err(err))
		return
	}

	log.Info("account created", sl.Account(res.AccountID), slog.String("handle", res.Handle))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}
