package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// AddClass добавляет класс в каталог.
func (s *Store) AddClass() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.classes[id] = true
	return id
}

// AddSubject добавляет предмет в класс.
func (s *Store) AddSubject(classID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.subjects[id] = classID
	return id
}

// AddTopic добавляет тему в предмет.
func (s *Store) AddTopic(subjectID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.topics[id] = subjectID
	return id
}

// AddPlan сохраняет план и возвращает его идентификатор. Нулевой ID назначается автоматически.
func (s *Store) AddPlan(plan models.SubscriptionPlan) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if plan.ID == 0 {
		plan.ID = s.id()
	}
	s.plans = append(s.plans, plan)
	return plan.ID
}

// AddInstance сохраняет подписку аккаунта.
func (s *Store) AddInstance(inst models.SubscriptionInstance) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst.ID = s.id()
	s.instances = append(s.instances, inst)
	return inst.ID
}

// TargetExists сообщает, существует ли цель в каталоге.
func (s *Store) TargetExists(ctx context.Context, targetType models.TargetType, id int64) (bool, error) {
	const op = "memory.TargetExists"
	if err := done(ctx, op); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch targetType {
	case models.TargetClass:
		return s.classes[id], nil
	case models.TargetSubject:
		_, ok := s.subjects[id]
		return ok, nil
	case models.TargetTopic:
		_, ok := s.topics[id]
		return ok, nil
	}
	return false, fmt.Errorf("%s: unknown target type %q", op, targetType)
}

// SubjectOfTopic возвращает предмет темы.
func (s *Store) SubjectOfTopic(ctx context.Context, topicID int64) (int64, error) {
	const op = "memory.SubjectOfTopic"
	if err := done(ctx, op); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	subjectID, ok := s.topics[topicID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return subjectID, nil
}

// GetInstance возвращает подписку аккаунта на цель.
func (s *Store) GetInstance(ctx context.Context, accountID int64, targetType models.TargetType, targetID int64) (*models.SubscriptionInstance, error) {
	const op = "memory.GetInstance"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		if inst.AccountID == accountID && inst.TargetType == targetType && inst.TargetID == targetID {
			cp := inst
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
}

// ListInstances возвращает подписки аккаунта, новые первыми.
func (s *Store) ListInstances(ctx context.Context, accountID int64) ([]models.SubscriptionInstance, error) {
	const op = "memory.ListInstances"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SubscriptionInstance
	for _, inst := range s.instances {
		if inst.AccountID == accountID {
			out = append(out, inst)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubscribedAt.After(out[j].SubscribedAt) })
	return out, nil
}

// PlansFor возвращает планы цели по возрастанию идентификатора.
func (s *Store) PlansFor(ctx context.Context, targetType models.TargetType, targetID int64) ([]models.SubscriptionPlan, error) {
	const op = "memory.PlansFor"
	if err := done(ctx, op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SubscriptionPlan
	for _, p := range s.plans {
		if p.TargetType == targetType && p.TargetID == targetID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
