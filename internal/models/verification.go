package models

import "time"

// CodeStatus состояние кода подтверждения.
type CodeStatus string

const (
	CodeActive  CodeStatus = "ACTIVE"
	CodeUsed    CodeStatus = "USED"
	CodeExpired CodeStatus = "EXPIRED"
)

// CodeAction действие, которое подтверждает код.
type CodeAction string

const (
	ActionSignup        CodeAction = "SIGNUP"
	ActionPasswordReset CodeAction = "PASSWORD_RESET"
)

// VerificationCode короткоживущий код, привязанный к паре (владелец, действие).
// Хранится только SHA-256 хеш кода.
type VerificationCode struct {
	ID          int64      `json:"id"`
	Owner       string     `json:"owner"`
	Action      CodeAction `json:"action"`
	CodeHash    string     `json:"-"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Status      CodeStatus `json:"status"`
}

// IssuedCode результат выпуска кода: открытое значение уходит только в письмо.
type IssuedCode struct {
	ID        int64
	Code      string
	ExpiresAt time.Time
}

// CodeRedemption погашение кода вместе с действием, которое он подтверждает.
// CodeID ноль, если подойдёт любой активный код пары.
type CodeRedemption struct {
	Owner    string
	Action   CodeAction
	CodeHash string
	CodeID   int64
	Now      time.Time
}
