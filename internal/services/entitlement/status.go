package entitlement

import (
	"math"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

const day = 24 * time.Hour

// Resolution вычисленное состояние подписки на момент now.
type Resolution struct {
	Status        models.EntitlementStatus
	ExpiresAt     *time.Time
	RemainingDays *int
}

// ResolveStatus вычисляет статус подписки. Чистая функция от подписки, плана и now.
//
// Без плана статус бинарный: ACTIVE или INACTIVE по флагу подписки, срок не считается.
// С планом: до окончания срока ACTIVE, затем до конца льготного периода включительно
// IN_GRACE_PERIOD, после EXPIRED. Отключённая подписка всегда INACTIVE.
func ResolveStatus(inst models.SubscriptionInstance, plan *models.SubscriptionPlan, now time.Time) Resolution {
	if plan == nil {
		if inst.Active {
			return Resolution{Status: models.StatusActive}
		}
		return Resolution{Status: models.StatusInactive}
	}

	expiry := inst.SubscribedAt.AddDate(0, 0, plan.DurationDays)
	remaining := remainingDays(expiry, now)
	res := Resolution{ExpiresAt: &expiry, RemainingDays: &remaining}

	switch {
	case !inst.Active:
		res.Status = models.StatusInactive
	case now.Before(expiry):
		res.Status = models.StatusActive
	case !now.After(expiry.AddDate(0, 0, plan.GracePeriodDays)):
		res.Status = models.StatusInGracePeriod
	default:
		res.Status = models.StatusExpired
	}
	return res
}

// remainingDays округляет оставшееся время вверх до целых суток. После окончания
// срока значение отрицательное.
func remainingDays(expiry, now time.Time) int {
	return int(math.Ceil(float64(expiry.Sub(now)) / float64(day)))
}

// selectPlan выбирает план с наименьшим идентификатором.
func selectPlan(plans []models.SubscriptionPlan) *models.SubscriptionPlan {
	if len(plans) == 0 {
		return nil
	}
	best := plans[0]
	for _, p := range plans[1:] {
		if p.ID < best.ID {
			best = p
		}
	}
	return &best
}
