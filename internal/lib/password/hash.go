// Package password реализует одностороннее хеширование и проверку паролей на bcrypt.
//
// Открытый пароль нигде не сохраняется и не логируется: наружу выходит только хеш.
package password

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes предел длины пароля в байтах: bcrypt не принимает более длинные.
const MaxBytes = 72

var (
	// ErrEmptyPassword пустой пароль не хешируется.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrTooLong пароль длиннее MaxBytes байт.
	ErrTooLong = errors.New("password must be at most 72 bytes")
)

// Hasher хеширует пароли bcrypt с настраиваемой стоимостью.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher создаёт Hasher. Стоимость вне допустимого диапазона bcrypt
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &Hasher{cost: cost}
	// Хеш для выравнивания времени ответа, когда аккаунт не найден.
	h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("identity-timing-equalizer"), cost)
	return h
}

// Hash возвращает bcrypt-хеш пароля. Ошибка хеширования всегда возвращается вызывающему.
func (h *Hasher) Hash(plaintext string) (string, error) {
	const op = "password.Hash"
	if plaintext == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}
	if len(plaintext) > MaxBytes {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сообщает, соответствует ли пароль хешу.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Equalize тратит на сравнение столько же времени, сколько Verify,
// чтобы по задержке нельзя было понять, существует ли логин.
func (h *Hasher) Equalize(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}

// Unusable возвращает хеш случайного секрета. Подходит для аккаунтов без
// пароля: подобрать к нему пароль невозможно.
func (h *Hasher) Unusable() (string, error) {
	const op = "password.Unusable"
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	// bcrypt учитывает только первые 72 байта, hex от 32 байт укладывается.
	return h.Hash(hex.EncodeToString(buf))
}
