package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken токен повреждён, подписан другим ключом или просрочен.
var ErrInvalidToken = errors.New("invalid token")

// CustomClaims данные аккаунта внутри токена.
type CustomClaims struct {
	AccountID            int64  `json:"aid"`  // Идентификатор аккаунта
	Role                 string `json:"role"` // Роль аккаунта
	SessionID            string `json:"sid"`  // Сессия, в рамках которой выпущен токен
	jwt.RegisteredClaims        // Subject (логин), IssuedAt, ExpiresAt
}

// GenerateToken создаёт токен с логином в subject, идентификатором аккаунта,
// ролью и сессией. Возвращает токен и момент его истечения.
func (j *MakerImpl) GenerateToken(subject string, accountID int64, role, sessionID string) (string, time.Time, error) {
	const op = "jwt.GenerateToken"
	issuedAt := j.now()
	expiresAt := issuedAt.Add(j.tokenTTL)
	claims := CustomClaims{
		AccountID: accountID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return signed, expiresAt, nil
}

// ParseToken проверяет подпись, алгоритм и срок действия токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
