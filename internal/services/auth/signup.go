package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// passwordLifetimeMonths срок действия пароля, записываемый в аккаунт.
const passwordLifetimeMonths = 6

// SignupInitiated ответ на запрос регистрации.
type SignupInitiated struct {
	Email               string `json:"email"`
	CodeValidityMinutes int    `json:"code_validity_minutes"`
}

// InitiateSignup проверяет, что логин и email свободны, выпускает код для email
// и сохраняет незавершённую регистрацию с хешем пароля.
// Повторный запрос для того же email истекает прежний код и заменяет запись.
func (s *Service) InitiateSignup(ctx context.Context, req models.SignupRequest) (*SignupInitiated, error) {
	const op = "auth.InitiateSignup"
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Handle = strings.TrimSpace(req.Handle)
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	if req.Role != models.RoleStudent {
		return nil, fmt.Errorf("%s: %w", op, models.ErrRoleNotAllowed)
	}
	log := s.log.With(sl.Op(op))

	if err := s.credentials.EnsureAvailable(ctx, req.Handle, req.Email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if errors.Is(err, password.ErrTooLong) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, errors.Join(models.ErrInternal, err))
	}
	req.Password = ""

	unlock := s.signupLocks.Lock(req.Email)
	defer unlock()

	issued, err := s.codes.Issue(ctx, req.Email, models.ActionSignup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pending := models.PendingSignup{
		Request:      req,
		PasswordHash: digest,
		CodeID:       issued.ID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.pending.PutPending(ctx, req.Email, pending, s.codes.Validity()+s.pendingMargin); err != nil {
		log.Error("failed to store pending signup", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	minutes := int(s.codes.Validity().Minutes())
	if err := s.notifier.SendCode(ctx, req.Email, issued.Code, minutes); err != nil {
		log.Error("failed to send verification code", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("signup initiated", slog.String("handle", req.Handle), slog.Int64("code_id", issued.ID))
	return &SignupInitiated{Email: req.Email, CodeValidityMinutes: minutes}, nil
}

// VerifySignup погашает код, создаёт аккаунт с профилем и выполняет вход.
//
// Незавершённая регистрация читается до погашения кода: если её нет, код
// остаётся нетронутым и возвращается models.ErrSignupSessionExpired.
// Погашение кода и создание аккаунта выполняются одной операцией хранилища:
// при сбое записи код остаётся активным и его можно ввести повторно.
// Код, выпущенный не для этой записи, даёт models.ErrSignupSessionExpired.
func (s *Service) VerifySignup(ctx context.Context, email, code, deviceID string, deviceType models.DeviceType) (*Result, error) {
	const op = "auth.VerifySignup"
	email = strings.ToLower(strings.TrimSpace(email))
	log := s.log.With(sl.Op(op))
	now := s.now().UTC()

	unlock := s.signupLocks.Lock(email)
	defer unlock()

	pending, err := s.pending.GetPending(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSignupSessionExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redemption, err := s.codes.Redemption(email, models.ActionSignup, code, pending.CodeID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req := pending.Request
	expiry := now.AddDate(0, passwordLifetimeMonths, 0)
	account, err := s.credentials.CompleteSignup(ctx, redemption, models.Account{
		Handle:         req.Handle,
		Email:          email,
		PasswordHash:   pending.PasswordHash,
		Role:           models.RoleStudent,
		SignupMethod:   models.SignupPassword,
		PasswordExpiry: &expiry,
		CreatedAt:      now,
	}, profileFromSignup(req))
	if errors.Is(err, models.ErrSignupSessionExpired) {
		log.Warn("verification code does not match pending signup", slog.Int64("pending_code_id", pending.CodeID))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.pending.DeletePending(ctx, email); err != nil {
		log.Warn("failed to delete pending signup", sl.Err(err))
	}
	s.welcome(ctx, account, req.FirstName)

	res, err := s.issue(ctx, account, deviceID, deviceType, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res.Created = true
	return res, nil
}

// welcome отправляет приветственное письмо. Ошибка только логируется:
// аккаунт к этому моменту уже создан.
func (s *Service) welcome(ctx context.Context, account *models.Account, name string) {
	if name == "" {
		name = account.Handle
	}
	if err := s.notifier.SendWelcome(ctx, account.Email, name, account.Handle); err != nil {
		s.log.Warn("failed to send welcome email", sl.Account(account.ID), sl.Err(err))
	}
}

func profileFromSignup(req models.SignupRequest) models.Profile {
	return models.Profile{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Email:      req.Email,
		MobileNo:   req.MobileNo,
		Country:    req.Country,
		State:      req.State,
		City:       req.City,
		Address:    req.Address,
	}
}
