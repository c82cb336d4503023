package tenant

import "time"

type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "trial"
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Tenant is one gym customer of the platform. All member, plan, session and
// payment rows carry its id; only system sweeps read across tenants.
type Tenant struct {
	ID                 string             `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Phone              string             `db:"phone" json:"phone"`
	PlanTier           string             `db:"plan_tier" json:"plan_tier"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	SubscriptionEnd    time.Time          `db:"subscription_end" json:"subscription_end"`
	MaxMembers         *int               `db:"max_members" json:"max_members,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// Suspended reports whether the tenant may no longer take member-facing
// actions (purchases, reservations).
func (t *Tenant) Suspended(now time.Time) bool {
	if t.SubscriptionStatus == StatusCancelled {
		return true
	}
	if t.SubscriptionStatus == StatusPastDue && now.After(t.SubscriptionEnd) {
		return true
	}
	return false
}
