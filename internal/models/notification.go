package models

// EmailKind тип письма.
type EmailKind string

const (
	EmailVerificationCode EmailKind = "verification_code"
	EmailWelcome          EmailKind = "welcome"
)

// EmailMessage задание на отправку письма, публикуемое в брокер.
type EmailMessage struct {
	ID              string    `json:"id"`
	Kind            EmailKind `json:"kind"`
	Email           string    `json:"email"`
	Code            string    `json:"code,omitempty"`
	ValidityMinutes int       `json:"validity_minutes,omitempty"`
	Name            string    `json:"name,omitempty"`
	Handle          string    `json:"handle,omitempty"`
}
