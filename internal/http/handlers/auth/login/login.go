// Package login реализует HTTP-обработчик входа по логину и паролю.
//
// Успешный вход создаёт сессию устройства и возвращает токен, который на неё ссылается.
// Для роли STUDENT новая сессия вытесняет все прежние.
package login

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

// Request входные данные для входа.
type Request struct {
	Handle     string            `json:"handle" validate:"required,min=3,max=50"`
	Password   string            `json:"password" validate:"required"`
	DeviceID   string            `json:"device_id,omitempty" validate:"omitempty,max=255"`
	DeviceType models.DeviceType `json:"device_type,omitempty" validate:"omitempty,oneof=WEB MOBILE TABLET DESKTOP"`
}

// Service бизнес-логика входа.
type Service interface {
	Login(ctx context.Context, handle, plaintext, deviceID string, deviceType models.DeviceType) (*auth.Result, error)
}

// Handler обрабатывает HTTP-запросы входа.
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
// @Summary Вход по логину и паролю
// @Description Проверяет учётные данные, создаёт сессию устройства и возвращает токен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные"
// @Success 200 {object} response.Response{data=auth.Result} "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 423 {object} response.ErrorResponse "Аккаунт заблокирован"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	res, err := h.service.Login(r.Context(), req.Handle, req.Password, req.DeviceID, req.DeviceType)
	if err != nil {
		status := response.WriteError(w, r, err)
		log.Warn("login failed", slog.String("handle", req.Handle), slog.Int("status", status), sl.Err(err))
		return
	}

	log.Info("login success", sl.Account(res.AccountID), slog.String("session_id", res.SessionID))
	render.JSON(w, r, response.OKWithData(res))
}
