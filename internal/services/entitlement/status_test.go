package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

func TestResolveStatus(t *testing.T) {
	subscribed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := &models.SubscriptionPlan{ID: 1, DurationDays: 30, GracePeriodDays: 5}
	expiry := subscribed.AddDate(0, 0, 30)

	tests := []struct {
		name          string
		active        bool
		plan          *models.SubscriptionPlan
		now           time.Time
		want          models.EntitlementStatus
		wantRemaining *int
	}{
		{name: "day 10 active", active: true, plan: plan, now: subscribed.AddDate(0, 0, 10), want: models.StatusActive, wantRemaining: intPtr(20)},
		{name: "just before expiry", active: true, plan: plan, now: expiry.Add(-time.Second), want: models.StatusActive, wantRemaining: intPtr(1)},
		{name: "at expiry", active: true, plan: plan, now: expiry, want: models.StatusInGracePeriod, wantRemaining: intPtr(0)},
		{name: "day 31 grace", active: true, plan: plan, now: subscribed.AddDate(0, 0, 31), want: models.StatusInGracePeriod, wantRemaining: intPtr(-1)},
		{name: "grace boundary inclusive", active: true, plan: plan, now: expiry.AddDate(0, 0, 5), want: models.StatusInGracePeriod, wantRemaining: intPtr(-5)},
		{name: "after grace", active: true, plan: plan, now: expiry.AddDate(0, 0, 5).Add(time.Second), want: models.StatusExpired, wantRemaining: intPtr(-5)},
		{name: "day 40 expired", active: true, plan: plan, now: subscribed.AddDate(0, 0, 40), want: models.StatusExpired, wantRemaining: intPtr(-10)},
		{name: "inactive with plan", active: false, plan: plan, now: subscribed.AddDate(0, 0, 1), want: models.StatusInactive, wantRemaining: intPtr(29)},
		{name: "no plan active", active: true, plan: nil, now: subscribed.AddDate(5, 0, 0), want: models.StatusActive},
		{name: "no plan inactive", active: false, plan: nil, now: subscribed, want: models.StatusInactive},
		{name: "partial day rounds up", active: true, plan: plan, now: expiry.Add(-36 * time.Hour), want: models.StatusActive, wantRemaining: intPtr(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := models.SubscriptionInstance{SubscribedAt: subscribed, Active: tt.active}
			res := ResolveStatus(inst, tt.plan, tt.now)
			assert.Equal(t, tt.want, res.Status)
			if tt.wantRemaining == nil {
				assert.Nil(t, res.RemainingDays)
				assert.Nil(t, res.ExpiresAt)
				return
			}
			require.NotNil(t, res.RemainingDays)
			assert.Equal(t, *tt.wantRemaining, *res.RemainingDays)
			require.NotNil(t, res.ExpiresAt)
			assert.Equal(t, expiry, *res.ExpiresAt)
		})
	}
}

func TestResolveStatus_Deterministic(t *testing.T) {
	inst := models.SubscriptionInstance{SubscribedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Active: true}
	plan := &models.SubscriptionPlan{DurationDays: 7, GracePeriodDays: 2}
	now := inst.SubscribedAt.AddDate(0, 0, 8)

	first := ResolveStatus(inst, plan, now)
	second := ResolveStatus(inst, plan, now)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.RemainingDays, *second.RemainingDays)
}

func TestSelectPlan(t *testing.T) {
	assert.Nil(t, selectPlan(nil))
	got := selectPlan([]models.SubscriptionPlan{{ID: 9}, {ID: 3}, {ID: 5}})
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.ID)
}

func intPtr(v int) *int { return &v }
