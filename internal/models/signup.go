package models

import "time"

// SignupRequest поля профиля для регистрации по паролю.
type SignupRequest struct {
	Handle     string `json:"handle"`
	Password   string `json:"-"`
	Role       Role   `json:"role"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	MobileNo   string `json:"mobile_no,omitempty"`
	Country    string `json:"country,omitempty"`
	State      string `json:"state,omitempty"`
	City       string `json:"city,omitempty"`
	Address    string `json:"address,omitempty"`
}

// PendingSignup незавершённая регистрация. Хранит хеш пароля, а не сам пароль,
// и идентификатор выпущенного кода.
type PendingSignup struct {
	Request      SignupRequest `json:"request"`
	PasswordHash string        `json:"password_hash"`
	CodeID       int64         `json:"code_id"`
	CreatedAt    time.Time     `json:"created_at"`
}

// FederatedIdentity данные, подтверждённые внешним провайдером входа.
type FederatedIdentity struct {
	Email      string     `json:"email"`
	ExternalID string     `json:"external_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	MobileNo   string     `json:"mobile_no,omitempty"`
	Country    string     `json:"country,omitempty"`
	State      string     `json:"state,omitempty"`
	City       string     `json:"city,omitempty"`
	Address    string     `json:"address,omitempty"`
	DeviceID   string     `json:"device_id,omitempty"`
	DeviceType DeviceType `json:"device_type,omitempty"`
}
