// Package verification выпускает и погашает одноразовые числовые коды подтверждения.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/lib/keylock"
	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Repository хранилище кодов.
type Repository interface {
	// IssueCode истекает активные коды пары и сохраняет новый. Возвращает ID и число истёкших.
	IssueCode(ctx context.Context, code models.VerificationCode) (int64, int64, error)
	// ConsumeCode переводит подходящий активный код в USED или возвращает models.ErrNotFound.
	ConsumeCode(ctx context.Context, owner string, action models.CodeAction, codeHash string, now time.Time) (int64, error)
}

// Issuer выпускает и погашает коды.
type Issuer struct {
	repo     Repository
	locks    *keylock.Locker
	metrics  *metrics.Recorder
	log      *slog.Logger
	length   int
	validity time.Duration
	now      func() time.Time
}

// NewIssuer создаёт Issuer. length число цифр кода, validity время жизни.
func NewIssuer(repo Repository, length int, validity time.Duration, m *metrics.Recorder, log *slog.Logger) *Issuer {
	return &Issuer{
		repo:     repo,
		locks:    keylock.New(),
		metrics:  m,
		log:      log,
		length:   length,
		validity: validity,
		now:      time.Now,
	}
}

// Validity время жизни выпускаемых кодов.
func (i *Issuer) Validity() time.Duration {
	return i.validity
}

// Issue истекает прежние активные коды пары (owner, action) и выпускает новый.
// Открытое значение возвращается вызывающему и нигде не сохраняется.
func (i *Issuer) Issue(ctx context.Context, owner string, action models.CodeAction) (*models.IssuedCode, error) {
	const op = "verification.Issue"
	owner = normalizeOwner(owner)

	code, err := generate(i.length)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrInternal, err)
	}

	unlock := i.locks.Lock(string(action) + ":" + owner)
	defer unlock()

	now := i.now().UTC()
	expiresAt := now.Add(i.validity)
	id, expired, err := i.repo.IssueCode(ctx, models.VerificationCode{
		Owner:       owner,
		Action:      action,
		CodeHash:    Digest(code),
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
		Status:      models.CodeActive,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	i.metrics.Code(string(action), "issued")
	i.log.Info("verification code issued",
		sl.Op(op),
		slog.String("action", string(action)),
		slog.Int64("code_id", id),
		slog.Int64("superseded", expired),
	)
	return &models.IssuedCode{ID: id, Code: code, ExpiresAt: expiresAt}, nil
}

// Consume погашает код. Неверный, использованный и истёкший код неразличимы:
// во всех случаях возвращается models.ErrInvalidOrExpiredCode.
func (i *Issuer) Consume(ctx context.Context, owner string, action models.CodeAction, code string, now time.Time) (int64, error) {
	const op = "verification.Consume"
	owner = normalizeOwner(owner)
	code = strings.TrimSpace(code)

	if len(code) != i.length || !digitsOnly(code) {
		i.metrics.Code(string(action), "rejected")
		return 0, fmt.Errorf("%s: %w", op, models.ErrInvalidOrExpiredCode)
	}

	id, err := i.repo.ConsumeCode(ctx, owner, action, Digest(code), now.UTC())
	if errors.Is(err, models.ErrNotFound) {
		i.metrics.Code(string(action), "rejected")
		return 0, fmt.Errorf("%s: %w", op, models.ErrInvalidOrExpiredCode)
	}
	if err != nil {
		i.log.Error("consume verification code", sl.Op(op), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	i.metrics.Code(string(action), "consumed")
	return id, nil
}

// Redemption проверяет формат кода и готовит его погашение вместе с действием,
// которое код подтверждает. Погашение выполняет хранилище этого действия.
func (i *Issuer) Redemption(owner string, action models.CodeAction, code string, codeID int64, now time.Time) (models.CodeRedemption, error) {
	const op = "verification.Redemption"
	code = strings.TrimSpace(code)
	if len(code) != i.length || !digitsOnly(code) {
		i.metrics.Code(string(action), "rejected")
		return models.CodeRedemption{}, fmt.Errorf("%s: %w", op, models.ErrInvalidOrExpiredCode)
	}
	return models.CodeRedemption{
		Owner:    normalizeOwner(owner),
		Action:   action,
		CodeHash: Digest(code),
		CodeID:   codeID,
		Now:      now.UTC(),
	}, nil
}

// Digest хеш кода для хранения.
func Digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

var ten = big.NewInt(10)

func generate(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeOwner(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}
