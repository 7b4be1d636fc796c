// Package models содержит доменные типы ядра идентификации и доступа к контенту.
package models

import "time"

// Role роль аккаунта.
type Role string

const (
	// RoleStudent ученик. Разрешена только одна активная сессия.
	RoleStudent Role = "STUDENT"
	// RoleAdmin администратор. Разрешено несколько активных сессий.
	RoleAdmin Role = "ADMIN"
)

// DevicePolicy политика одновременных сессий аккаунта.
type DevicePolicy int

const (
	// SingleDevice новая сессия вытесняет все остальные.
	SingleDevice DevicePolicy = iota
	// MultiDevice сессии существуют независимо.
	MultiDevice
)

var devicePolicies = map[Role]DevicePolicy{
	RoleStudent: SingleDevice,
	RoleAdmin:   MultiDevice,
}

// DevicePolicy возвращает политику сессий для роли. Неизвестные роли
// получают самую строгую политику.
func (r Role) DevicePolicy() DevicePolicy {
	if p, ok := devicePolicies[r]; ok {
		return p
	}
	return SingleDevice
}

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	_, ok := devicePolicies[r]
	return ok
}

// SignupMethod способ, которым был создан аккаунт.
type SignupMethod string

const (
	// SignupPassword регистрация по логину, паролю и коду из письма.
	SignupPassword SignupMethod = "PASSWORD"
	// SignupFederated аккаунт создан при первом входе через внешнего провайдера.
	SignupFederated SignupMethod = "FEDERATED"
)

// Account учётная запись, способная проходить аутентификацию.
type Account struct {
	ID             int64        `json:"id"`
	Handle         string       `json:"handle"`
	Email          string       `json:"email"`
	PasswordHash   string       `json:"-"`
	FailedAttempts int          `json:"failed_attempts"`
	Locked         bool         `json:"locked"`
	Role           Role         `json:"role"`
	SignupMethod   SignupMethod `json:"signup_method"`
	LastAttemptAt  *time.Time   `json:"last_attempt_at,omitempty"`
	LastLoginAt    *time.Time   `json:"last_login_at,omitempty"`
	PasswordExpiry *time.Time   `json:"password_expiry,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Profile персональные данные владельца аккаунта.
type Profile struct {
	AccountID  int64  `json:"account_id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	MobileNo   string `json:"mobile_no,omitempty"`
	Country    string `json:"country,omitempty"`
	State      string `json:"state,omitempty"`
	City       string `json:"city,omitempty"`
	Address    string `json:"address,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// FullName имя для приветственных писем.
func (p Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// AttemptResult результат атомарного учёта неудачной попытки входа.
type AttemptResult struct {
	FailedAttempts int
	Locked         bool
}
