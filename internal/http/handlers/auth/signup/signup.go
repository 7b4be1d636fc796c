// Package signup реализует первый шаг регистрации по паролю: проверку
// уникальности, сохранение незавершённой регистрации и отправку кода на почту.
package signup

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/edu-identity/internal/http/response"
	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/services/auth"
)

// Request профиль новой учётной записи.
type Request struct {
	Handle     string `json:"handle" validate:"required,min=4,max=50"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Role       string `json:"role,omitempty" validate:"omitempty,oneof=STUDENT ADMIN"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	MiddleName string `json:"middle_name,omitempty" validate:"max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	MobileNo   string `json:"mobile_no,omitempty" validate:"omitempty,max=20"`
	Country    string `json:"country,omitempty" validate:"max=100"`
	State      string `json:"state,omitempty" validate:"max=100"`
	City       string `json:"city,omitempty" validate:"max=100"`
	Address    string `json:"address,omitempty" validate:"max=255"`
}

func (r Request) toModel() models.SignupRequest {
	role := models.Role(r.Role)
	if role == "" {
		role = models.RoleStudent
	}
	return models.SignupRequest{
		Handle:     strings.TrimSpace(r.Handle),
		Password:   r.Password,
		Role:       role,
		FirstName:  r.FirstName,
		MiddleName: r.MiddleName,
		LastName:   r.LastName,
		Email:      strings.TrimSpace(r.Email),
		MobileNo:   r.MobileNo,
		Country:    r.Country,
		State:      r.State,
		City:       r.City,
		Address:    r.Address,
	}
}

// Service бизнес-логика регистрации.
type Service interface {
	InitiateSignup(ctx context.Context, req models.SignupRequest) (*auth.SignupInitiated, error)
}

// Handler обрабатывает запросы на регистрацию.
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
// @Summary Начало регистрации
// @Description Проверяет, что логин и email свободны, и отправляет код подтверждения на email.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Профиль"
// @Success 202 {object} response.Response{data=auth.SignupInitiated} "Код отправлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или недопустимая роль"
// @Failure 409 {object} response.ErrorResponse "Логин или email заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/signup [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"

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
	if len(req.Password) > password.MaxBytes {
		log.Warn("password exceeds bcrypt limit", slog.Int("bytes", len(req.Password)))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(password.ErrTooLong.Error()))
		return
	}

	res, err := h.service.InitiateSignup(r.Context(), req.toModel())
	if err != nil {
		status := response.WriteError(w, r, err)
		log.Warn("signup rejected", slog.String("handle", req.Handle), slog.Int("status", status), sl.Err(err))
		return
	}

	log.Info("signup initiated", slog.String("handle", req.Handle))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response.OKWithData(res))
}
