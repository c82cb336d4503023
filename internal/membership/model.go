package membership

import "time"

type Member struct {
	ID           int       `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	Deleted      bool      `db:"deleted" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Plan is soft-deletable: historical periods keep referencing deleted plans.
type Plan struct {
	ID           int       `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Name         string    `db:"name" json:"name"`
	PriceCents   int64     `db:"price_cents" json:"price_cents"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	ClassCredits *int      `db:"class_credits" json:"class_credits,omitempty"`
	WeekdayMask  *int      `db:"weekday_mask" json:"weekday_mask,omitempty"`
	Deleted      bool      `db:"deleted" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AllowsWeekday checks the plan's access mask; bit 0 is Sunday, matching
// time.Weekday numbering. A nil mask allows every day.
func (p *Plan) AllowsWeekday(d time.Weekday) bool {
	if p.WeekdayMask == nil {
		return true
	}
	return *p.WeekdayMask&(1<<uint(d)) != 0
}

// Period is one purchased membership window. PaidPriceCents snapshots the
// plan price at purchase time and never changes; rows are never deleted.
type Period struct {
	ID               int       `db:"id" json:"id"`
	TenantID         string    `db:"tenant_id" json:"tenant_id"`
	MemberID         int       `db:"member_id" json:"member_id"`
	PlanID           int       `db:"plan_id" json:"plan_id"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	PaidPriceCents   int64     `db:"paid_price_cents" json:"paid_price_cents"`
	RemainingCredits *int      `db:"remaining_credits" json:"remaining_credits,omitempty"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type PeriodStatus string

const (
	StatusCurrent  PeriodStatus = "current"
	StatusFuture   PeriodStatus = "future"
	StatusExpired  PeriodStatus = "expired"
	StatusInactive PeriodStatus = "inactive"
)

// Status derives the display state. A stacked renewal shows up as "future"
// until its start date arrives.
func (p *Period) Status(now time.Time) PeriodStatus {
	if !p.Active {
		return StatusInactive
	}
	if now.Before(p.StartDate) {
		return StatusFuture
	}
	if now.After(p.EndDate) {
		return StatusExpired
	}
	return StatusCurrent
}
