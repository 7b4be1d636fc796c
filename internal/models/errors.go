package models

import "errors"

// Доменные ошибки ядра идентификации и доступа. Проверяются через errors.Is.
var (
	// ErrAccountLocked аккаунт заблокирован после серии неудачных попыток входа.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCredentials неверный логин или пароль. Не раскрывает, что именно не так.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpiredCode код подтверждения неверен, использован или истёк.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	// ErrSignupSessionExpired данные незавершённой регистрации не найдены.
	ErrSignupSessionExpired = errors.New("signup session expired, please restart signup process")
	// ErrSignupMethodMismatch аккаунт зарегистрирован другим способом входа.
	ErrSignupMethodMismatch = errors.New("this email is registered with password, please use password login")
	// ErrDuplicateIdentity логин или email уже заняты.
	ErrDuplicateIdentity = errors.New("handle or email already registered")
	// ErrRoleNotAllowed роль нельзя получить при самостоятельной регистрации.
	ErrRoleNotAllowed = errors.New("role is not allowed for self signup")
	// ErrTargetNotFound класс, предмет или тема не существуют.
	ErrTargetNotFound = errors.New("target not found")
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrSessionInactive сессия завершена или вытеснена.
	ErrSessionInactive = errors.New("session is not active")
	// ErrInternal внутренняя ошибка: хеширование, подпись, хранилище.
	ErrInternal = errors.New("internal error")
)
