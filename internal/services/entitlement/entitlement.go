// Package entitlement вычисляет доступ аккаунта к классам, предметам и темам по его подпискам.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// Repository каталог и подписки.
type Repository interface {
	TargetExists(ctx context.Context, targetType models.TargetType, id int64) (bool, error)
	SubjectOfTopic(ctx context.Context, topicID int64) (int64, error)
	GetInstance(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64) (*models.SubscriptionInstance, error)
	ListInstances(ctx context.Context, accountID int64) ([]models.SubscriptionInstance, error)
	PlansFor(ctx context.Context, targetType models.TargetType, targetID int64) ([]models.SubscriptionPlan, error)
}

// Cache кэш планов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Resolver вычисляет доступ.
type Resolver struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	metrics  *metrics.Recorder
	log      *slog.Logger
}

// NewResolver создаёт Resolver. cache может быть nil.
func NewResolver(repo Repository, cache Cache, cacheTTL time.Duration, m *metrics.Recorder, log *slog.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		log:      log,
	}
}

// CheckAccess решает, открыт ли аккаунту доступ к цели.
//
// Подписка на предмет открывает все его темы, подписка на тему предмет не открывает.
// Прямая подписка на тему имеет приоритет над унаследованной. Если доступа нет,
// в ответе остаётся статус найденной подписки, чтобы владелец видел истёкшие записи.
// Классы подписок не имеют, поэтому для существующего класса доступ всегда закрыт.
func (r *Resolver) CheckAccess(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64, now time.Time) (*models.AccessDecision, error) {
	const op = "entitlement.CheckAccess"
	if !targetType.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown target type %q", op, models.ErrTargetNotFound, targetType)
	}
	exists, err := r.repo.TargetExists(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, models.ErrTargetNotFound)
	}

	var decision *models.AccessDecision
	switch targetType {
	case models.TargetClass:
		decision = noGrant()
	case models.TargetSubject:
		decision, err = r.decide(ctx, accountID, models.TargetSubject, targetID, models.ViaSubject, now)
	case models.TargetTopic:
		decision, err = r.decideTopic(ctx, accountID, targetID, now)
	}
	if err != nil {
		r.log.Error("failed to resolve access", sl.Op(op), sl.Account(accountID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.metrics.AccessCheck(decision.Granted, string(decision.Via))
	return decision, nil
}

// HasAccess сокращение CheckAccess, возвращающее только факт доступа.
func (r *Resolver) HasAccess(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64, now time.Time) (bool, error) {
	d, err := r.CheckAccess(ctx, accountID, targetType, targetID, now)
	if err != nil {
		return false, err
	}
	return d.Granted, nil
}

func (r *Resolver) decideTopic(ctx context.Context, accountID, topicID int64, now time.Time) (*models.AccessDecision, error) {
	direct, err := r.decide(ctx, accountID, models.TargetTopic, topicID, models.ViaTopic, now)
	if err != nil {
		return nil, err
	}
	if direct.Granted {
		return direct, nil
	}

	subjectID, err := r.repo.SubjectOfTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	inherited, err := r.decide(ctx, accountID, models.TargetSubject, subjectID, models.ViaSubject, now)
	if err != nil {
		return nil, err
	}
	if inherited.Granted {
		return inherited, nil
	}
	if direct.Via != models.ViaNone {
		return direct, nil
	}
	return inherited, nil
}

// decide вычисляет решение по одной подписке. Via равен ViaNone, если подписки нет.
func (r *Resolver) decide(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64, via models.AccessVia, now time.Time) (*models.AccessDecision, error) {
	inst, err := r.repo.GetInstance(ctx, accountID, targetType, targetID)
	if errors.Is(err, models.ErrNotFound) {
		return noGrant(), nil
	}
	if err != nil {
		return nil, err
	}
	plan, err := r.plan(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	res := ResolveStatus(*inst, plan, now)
	return &models.AccessDecision{
		Granted:       res.Status.GrantsAccess(),
		Status:        res.Status,
		RemainingDays: res.RemainingDays,
		ExpiresAt:     res.ExpiresAt,
		Via:           via,
	}, nil
}

// ListEntitlements возвращает все подписки аккаунта с вычисленными статусами,
// включая истёкшие и отключённые.
func (r *Resolver) ListEntitlements(ctx context.Context, accountID int64, now time.Time) ([]models.Entitlement, error) {
	const op = "entitlement.ListEntitlements"
	instances, err := r.repo.ListInstances(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.Entitlement, 0, len(instances))
	for _, inst := range instances {
		plan, err := r.plan(ctx, inst.TargetType, inst.TargetID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res := ResolveStatus(inst, plan, now)
		e := models.Entitlement{
			Instance:      inst,
			Status:        res.Status,
			RemainingDays: res.RemainingDays,
			ExpiresAt:     res.ExpiresAt,
		}
		if plan != nil {
			e.PlanName = plan.Name
		}
		out = append(out, e)
	}
	return out, nil
}

func planCacheKey(targetType models.TargetType, targetID int64) string {
	return fmt.Sprintf("plans:%s:%d", targetType, targetID)
}

// plan возвращает план цели, сначала из кэша. Ошибки кэша не прерывают проверку.
func (r *Resolver) plan(ctx context.Context, targetType models.TargetType, targetID int64) (*models.SubscriptionPlan, error) {
	key := planCacheKey(targetType, targetID)
	var plans []models.SubscriptionPlan
	if r.cache != nil {
		found, err := r.cache.Get(ctx, key, &plans)
		if err != nil {
			r.log.Warn("failed to read plans from cache", slog.String("key", key), sl.Err(err))
		}
		if found {
			return selectPlan(plans), nil
		}
	}

	plans, err := r.repo.PlansFor(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, plans, r.cacheTTL); err != nil {
			r.log.Warn("failed to cache plans", slog.String("key", key), sl.Err(err))
		}
	}
	return selectPlan(plans), nil
}

func noGrant() *models.AccessDecision {
	return &models.AccessDecision{Status: models.StatusInactive, Via: models.ViaNone}
}
