package models

import "time"

// TargetType уровень контента, на который оформляется подписка.
type TargetType string

const (
	TargetClass   TargetType = "CLASS"
	TargetSubject TargetType = "SUBJECT"
	TargetTopic   TargetType = "TOPIC"
)

// Valid сообщает, известен ли тип цели.
func (t TargetType) Valid() bool {
	switch t {
	case TargetClass, TargetSubject, TargetTopic:
		return true
	}
	return false
}

// SubscriptionPlan тарифный план на класс, предмет или тему.
type SubscriptionPlan struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	TargetType      TargetType `json:"target_type"`
	TargetID        int64      `json:"target_id"`
	DurationDays    int        `json:"duration_days"`
	Price           float64    `json:"price"`
	Currency        string     `json:"currency"`
	GracePeriodDays int        `json:"grace_period_days"`
	FreeDays        int        `json:"free_days"`
	Active          bool       `json:"active"`
}

// SubscriptionInstance подписка конкретного аккаунта на предмет или тему.
type SubscriptionInstance struct {
	ID           int64      `json:"id"`
	AccountID    int64      `json:"account_id"`
	TargetType   TargetType `json:"target_type"`
	TargetID     int64      `json:"target_id"`
	SubscribedAt time.Time  `json:"subscribed_at"`
	Active       bool       `json:"active"`
}

// EntitlementStatus вычисляемое состояние подписки. Не хранится.
type EntitlementStatus string

const (
	StatusActive        EntitlementStatus = "ACTIVE"
	StatusInGracePeriod EntitlementStatus = "IN_GRACE_PERIOD"
	StatusExpired       EntitlementStatus = "EXPIRED"
	StatusInactive      EntitlementStatus = "INACTIVE"
)

// GrantsAccess сообщает, открывает ли статус доступ к контенту.
func (s EntitlementStatus) GrantsAccess() bool {
	return s == StatusActive || s == StatusInGracePeriod
}

// AccessVia путь, по которому получен доступ.
type AccessVia string

const (
	ViaTopic   AccessVia = "TOPIC_SUBSCRIPTION"
	ViaSubject AccessVia = "SUBJECT_SUBSCRIPTION"
	ViaNone    AccessVia = "NONE"
)

// AccessDecision результат проверки доступа аккаунта к цели.
type AccessDecision struct {
	Granted       bool              `json:"granted"`
	Status        EntitlementStatus `json:"status"`
	RemainingDays *int              `json:"remaining_days,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Via           AccessVia         `json:"via"`
}

// Entitlement подписка аккаунта с вычисленным статусом. Видна владельцу
// независимо от того, даёт ли она доступ.
type Entitlement struct {
	Instance      SubscriptionInstance `json:"instance"`
	PlanName      string               `json:"plan_name,omitempty"`
	Status        EntitlementStatus    `json:"status"`
	RemainingDays *int                 `json:"remaining_days,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}
