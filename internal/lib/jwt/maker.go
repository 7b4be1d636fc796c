// Package jwt выпускает и проверяет подписанные токены доступа с данными аккаунта.
//
// Ключ подписи задаётся при старте процесса и дальше только читается.
// Ротация ключа не поддерживается. Токен не отзывается сам по себе:
// действительность входа определяет сессия, на которую ссылается claim sid.
package jwt

import (
	"time"
)

// Maker описывает выпуск и разбор токенов.
type Maker interface {
	// GenerateToken подписывает токен для аккаунта и сессии.
	GenerateToken(subject string, accountID int64, role, sessionID string) (string, time.Time, error)
	// ParseToken проверяет подпись и срок действия и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на HMAC-SHA256.
type MakerImpl struct {
	secretKey []byte        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
