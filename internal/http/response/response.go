// Package response содержит единый формат JSON-ответов HTTP-обработчиков
// и соответствие доменных ошибок HTTP-статусам.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/edu-identity/internal/lib/jwt"
	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Response стандартная структура JSON-ответа сервера.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

const internalMessage = "internal server error"

// OKWithData возвращает успешный Response с данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

var statuses = []struct {
	err    error
	status int
}{
	{models.ErrAccountLocked, http.StatusLocked},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrSessionInactive, http.StatusUnauthorized},
	{jwt.ErrInvalidToken, http.StatusUnauthorized},
	{models.ErrInvalidOrExpiredCode, http.StatusBadRequest},
	{models.ErrRoleNotAllowed, http.StatusBadRequest},
	{password.ErrTooLong, http.StatusUnprocessableEntity},
	{models.ErrSignupSessionExpired, http.StatusGone},
	{models.ErrSignupMethodMismatch, http.StatusConflict},
	{models.ErrDuplicateIdentity, http.StatusConflict},
	{models.ErrTargetNotFound, http.StatusNotFound},
	{models.ErrNotFound, http.StatusNotFound},
}

// FromError возвращает HTTP-статус и текст ответа для ошибки сервиса.
// Неизвестные ошибки скрываются за общим сообщением.
func FromError(err error) (int, string) {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}
	return http.StatusInternalServerError, internalMessage
}

// WriteError пишет ответ с ошибкой сервиса.
func WriteError(w http.ResponseWriter, r *http.Request, err error) int {
	status, msg := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
	return status
}

// ValidationError формирует ответ из ошибок валидации.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "min", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s has invalid length", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
