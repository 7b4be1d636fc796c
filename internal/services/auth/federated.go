package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

const (
	fallbackHandle   = "user"
	maxHandleSuffix  = 10000
	maxHandlePrefix  = 40
	provisionRetries = 3
)

var errHandleExhausted = errors.New("no free handle")

// FederatedAuth входит по email, подтверждённому внешним провайдером.
//
// Существующий аккаунт должен быть создан этим же способом, иначе
// models.ErrSignupMethodMismatch. Если аккаунта нет, он создаётся с логином из
// локальной части email и паролем, под который нельзя подобрать значение.
func (s *Service) FederatedAuth(ctx context.Context, identity models.FederatedIdentity) (*Result, error) {
	const op = "auth.FederatedAuth"
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	now := s.now().UTC()

	var (
		account *models.Account
		created bool
		err     error
	)
	for range provisionRetries {
		account, err = s.credentials.FindByEmail(ctx, identity.Email)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		account, err = s.provision(ctx, identity, now)
		if err == nil {
			created = true
			break
		}
		// Параллельный вход мог занять логин или email: повторяем поиск.
		if !errors.Is(err, models.ErrDuplicateIdentity) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if account.SignupMethod != models.SignupFederated {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSignupMethodMismatch)
	}
	if account.Locked {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountLocked)
	}

	if created {
		s.welcome(ctx, account, identity.FirstName)
	}
	res, err := s.issue(ctx, account, identity.DeviceID, identity.DeviceType, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res.Created = created
	return res, nil
}

func (s *Service) provision(ctx context.Context, identity models.FederatedIdentity, now time.Time) (*models.Account, error) {
	handle, err := s.uniqueHandle(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	digest, err := s.hasher.Unusable()
	if err != nil {
		return nil, errors.Join(models.ErrInternal, err)
	}
	account, err := s.credentials.Register(ctx, models.Account{
		Handle:       handle,
		Email:        identity.Email,
		PasswordHash: digest,
		Role:         models.RoleStudent,
		SignupMethod: models.SignupFederated,
		CreatedAt:    now,
	}, models.Profile{
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Email:      identity.Email,
		MobileNo:   identity.MobileNo,
		Country:    identity.Country,
		State:      identity.State,
		City:       identity.City,
		Address:    identity.Address,
		ExternalID: identity.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("federated account provisioned", sl.Account(account.ID), slog.String("handle", handle))
	return account, nil
}

// uniqueHandle подбирает свободный логин: основа из email, затем основа с числом 1, 2, ...
func (s *Service) uniqueHandle(ctx context.Context, email string) (string, error) {
	base := HandleBase(email)
	for i := 0; i <= maxHandleSuffix; i++ {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		taken, err := s.credentials.HandleTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q", errHandleExhausted, base)
}

// HandleBase основа логина: локальная часть email без символов, кроме букв и цифр.
func HandleBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
		if b.Len() >= maxHandlePrefix {
			break
		}
	}
	if b.Len() == 0 {
		return fallbackHandle
	}
	return b.String()
}
