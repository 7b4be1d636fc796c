package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// TargetExists сообщает, существует ли класс, предмет или тема.
func (s *Storage) TargetExists(ctx context.Context, targetType models.TargetType, id int64) (bool, error) {
	const op = "storage.TargetExists"
	var query string
	switch targetType {
	case models.TargetClass:
		query = `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1)`
	case models.TargetSubject:
		query = `SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1)`
	case models.TargetTopic:
		query = `SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1)`
	default:
		return false, fmt.Errorf("%s: unknown target type %q", op, targetType)
	}
	return s.exists(ctx, op, query, id)
}

// SubjectOfTopic возвращает предмет, к которому относится тема.
func (s *Storage) SubjectOfTopic(ctx context.Context, topicID int64) (int64, error) {
	const op = "storage.SubjectOfTopic"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var subjectID int64
	if err := s.DB.QueryRowContext(ctx, `SELECT subject_id FROM topics WHERE id = $1`, topicID).Scan(&subjectID); err != nil {
		return 0, mapError(op, err)
	}
	return subjectID, nil
}

const instanceColumns = `id, account_id, target_type, target_id, subscribed_at, active`

// GetInstance возвращает подписку аккаунта на цель.
func (s *Storage) GetInstance(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64) (*models.SubscriptionInstance, error) {
	const op = "storage.GetInstance"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var inst models.SubscriptionInstance
	err := s.DB.QueryRowContext(ctx, `
		SELECT `+instanceColumns+` FROM subscription_instances
		WHERE account_id = $1 AND target_type = $2 AND target_id = $3`,
		accountID, targetType, targetID,
	).Scan(&inst.ID, &inst.AccountID, &inst.TargetType, &inst.TargetID, &inst.SubscribedAt, &inst.Active)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &inst, nil
}

// ListInstances возвращает все подписки аккаунта.
func (s *Storage) ListInstances(ctx context.Context, accountID int64) ([]models.SubscriptionInstance, error) {
	const op = "storage.ListInstances"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+instanceColumns+` FROM subscription_instances
		WHERE account_id = $1 ORDER BY subscribed_at DESC, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.SubscriptionInstance
	for rows.Next() {
		var inst models.SubscriptionInstance
		if err = rows.Scan(&inst.ID, &inst.AccountID, &inst.TargetType, &inst.TargetID, &inst.SubscribedAt, &inst.Active); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, inst)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// PlansFor возвращает планы цели в порядке возрастания идентификатора.
func (s *Storage) PlansFor(ctx context.Context, targetType models.TargetType, targetID int64) ([]models.SubscriptionPlan, error) {
	const op = "storage.PlansFor"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, target_type, target_id, duration_days, price::float8, currency,
		       grace_period_days, free_days, active
		FROM subscription_plans
		WHERE target_type = $1 AND target_id = $2
		ORDER BY id`, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.SubscriptionPlan
	for rows.Next() {
		var p models.SubscriptionPlan
		if err = rows.Scan(&p.ID, &p.Name, &p.TargetType, &p.TargetID, &p.DurationDays, &p.Price,
			&p.Currency, &p.GracePeriodDays, &p.FreeDays, &p.Active); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
