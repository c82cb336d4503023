package membership

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gymflow/internal/payment"
)

var (
	// ErrPeriodNotFound is shared with the reconciler, which branches on it
	// to separate a missing target from a transient store failure.
	ErrPeriodNotFound = payment.ErrPeriodNotFound

	ErrNoCurrentPeriod = errors.New("no current membership period")
	ErrNoCredits       = errors.New("no class credits remaining")
	ErrDayNotAllowed   = errors.New("plan does not allow access on this weekday")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetPlan(ctx context.Context, tenantID string, planID int) (*Plan, error) {
	query := `
		SELECT id, tenant_id, name, price_cents, duration_days, class_credits, weekday_mask, deleted, created_at
		FROM membership_plans
		WHERE tenant_id = $1 AND id = $2 AND deleted = FALSE
	`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, tenantID, planID)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *repository) CreatePlan(ctx context.Context, plan *Plan) (*Plan, error) {
	query := `
		INSERT INTO membership_plans (tenant_id, name, price_cents, duration_days, class_credits, weekday_mask)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, name, price_cents, duration_days, class_credits, weekday_mask, deleted, created_at
	`

	var created Plan
	err := r.db.GetContext(ctx, &created, query,
		plan.TenantID, plan.Name, plan.PriceCents, plan.DurationDays, plan.ClassCredits, plan.WeekdayMask)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetMember(ctx context.Context, tenantID string, memberID int) (*Member, error) {
	query := `
		SELECT id, tenant_id, external_id, name, phone, email, password_hash, role, active, deleted, created_at
		FROM members
		WHERE tenant_id = $1 AND id = $2 AND deleted = FALSE
	`

	var member Member
	err := r.db.GetContext(ctx, &member, query, tenantID, memberID)
	if err != nil {
		return nil, err
	}

	return &member, nil
}

// FindMemberByEmail is used by the login path, before any tenant is known;
// the member row carries the tenant the session gets scoped to.
func (r *repository) FindMemberByEmail(ctx context.Context, email string) (*Member, error) {
	query := `
		SELECT id, tenant_id, external_id, name, phone, email, password_hash, role, active, deleted, created_at
		FROM members
		WHERE email = $1 AND deleted = FALSE
	`

	var member Member
	err := r.db.GetContext(ctx, &member, query, email)
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (r *repository) CountActiveMembers(ctx context.Context, tenantID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM members
		WHERE tenant_id = $1 AND active = TRUE AND deleted = FALSE
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, tenantID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) LatestActiveEnd(ctx context.Context, tenantID string, memberID int) (*time.Time, error) {
	query := `
		SELECT MAX(end_date)
		FROM membership_periods
		WHERE tenant_id = $1 AND member_id = $2 AND active = TRUE
	`

	var end *time.Time
	err := r.db.GetContext(ctx, &end, query, tenantID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return end, nil
}

// CreatePeriod inserts the period and, for immediate-settlement purchases,
// the paid payment record in the same transaction. Deferred purchases get no
// record here: it is appended only on confirmed reconciliation, so abandoned
// checkouts leave no payment history.
func (r *repository) CreatePeriod(ctx context.Context, period *Period, settled bool) (*Period, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var created Period
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO membership_periods (tenant_id, member_id, plan_id, start_date, end_date, paid_price_cents, remaining_credits, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, tenant_id, member_id, plan_id, start_date, end_date, paid_price_cents, remaining_credits, active, created_at
	`, period.TenantID, period.MemberID, period.PlanID, period.StartDate, period.EndDate,
		period.PaidPriceCents, period.RemainingCredits, period.Active).StructScan(&created)
	if err != nil {
		return nil, err
	}

	if settled {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_records (tenant_id, member_id, amount_cents, method, paid, paid_at)
			VALUES ($1, $2, $3, 'cash', TRUE, NOW())
		`, period.TenantID, period.MemberID, period.PaidPriceCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) ListPeriods(ctx context.Context, tenantID string, memberID int) ([]Period, error) {
	query := `
		SELECT id, tenant_id, member_id, plan_id, start_date, end_date, paid_price_cents, remaining_credits, active, created_at
		FROM membership_periods
		WHERE tenant_id = $1 AND member_id = $2
		ORDER BY end_date DESC
	`

	var periods []Period
	err := r.db.SelectContext(ctx, &periods, query, tenantID, memberID)
	if err != nil {
		return nil, err
	}

	return periods, nil
}

// ActivatePeriod applies a confirmed gateway payment. It is tenant-agnostic
// by design: the webhook only carries the period id, which is globally
// unique. The stacked start date is recomputed here rather than trusted from
// purchase time, because other periods may have been activated in between.
func (r *repository) ActivatePeriod(ctx context.Context, periodID int, now time.Time) (*payment.Activation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var row struct {
		Period
		DurationDays int    `db:"duration_days"`
		MemberPhone  string `db:"member_phone"`
		MemberName   string `db:"member_name"`
	}
	err = tx.QueryRowxContext(ctx, `
		SELECT
			p.id, p.tenant_id, p.member_id, p.plan_id, p.start_date, p.end_date,
			p.paid_price_cents, p.remaining_credits, p.active, p.created_at,
			pl.duration_days,
			m.phone AS member_phone,
			m.name AS member_name
		FROM membership_periods p
		JOIN membership_plans pl ON p.plan_id = pl.id
		JOIN members m ON p.member_id = m.id
		WHERE p.id = $1
		FOR UPDATE OF p
	`, periodID).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPeriodNotFound
		}
		return nil, err
	}

	act := &payment.Activation{
		PeriodID:    row.ID,
		TenantID:    row.TenantID,
		MemberID:    row.MemberID,
		MemberPhone: row.MemberPhone,
		MemberName:  row.MemberName,
		AmountCents: row.PaidPriceCents,
	}

	if row.Active {
		act.AlreadyActive = true
		act.EndDate = row.EndDate
		return act, tx.Commit()
	}

	var latestEnd *time.Time
	err = tx.GetContext(ctx, &latestEnd, `
		SELECT MAX(end_date)
		FROM membership_periods
		WHERE member_id = $1 AND active = TRUE AND id <> $2
	`, row.MemberID, periodID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	start := now
	if latestEnd != nil && latestEnd.After(now) {
		start = *latestEnd
	}
	end := start.AddDate(0, 0, row.DurationDays)

	_, err = tx.ExecContext(ctx, `
		UPDATE membership_periods
		SET start_date = $1, end_date = $2, active = TRUE
		WHERE id = $3
	`, start, end, periodID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_records (tenant_id, member_id, amount_cents, method, paid, paid_at)
		VALUES ($1, $2, $3, 'gateway', TRUE, $4)
	`, row.TenantID, row.MemberID, row.PaidPriceCents, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	act.EndDate = end
	return act, nil
}

// PeriodBilling reads the billing identity of a period. Tenant-agnostic like
// ActivatePeriod: the caller only holds the globally unique period id.
func (r *repository) PeriodBilling(ctx context.Context, periodID int) (*payment.Activation, error) {
	query := `
		SELECT
			p.id, p.tenant_id, p.member_id, p.paid_price_cents, p.end_date, p.active,
			m.phone AS member_phone,
			m.name AS member_name
		FROM membership_periods p
		JOIN members m ON p.member_id = m.id
		WHERE p.id = $1
	`

	var row struct {
		ID             int       `db:"id"`
		TenantID       string    `db:"tenant_id"`
		MemberID       int       `db:"member_id"`
		PaidPriceCents int64     `db:"paid_price_cents"`
		EndDate        time.Time `db:"end_date"`
		Active         bool      `db:"active"`
		MemberPhone    string    `db:"member_phone"`
		MemberName     string    `db:"member_name"`
	}
	if err := r.db.GetContext(ctx, &row, query, periodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPeriodNotFound
		}
		return nil, err
	}

	return &payment.Activation{
		PeriodID:      row.ID,
		TenantID:      row.TenantID,
		MemberID:      row.MemberID,
		MemberPhone:   row.MemberPhone,
		MemberName:    row.MemberName,
		EndDate:       row.EndDate,
		AmountCents:   row.PaidPriceCents,
		AlreadyActive: row.Active,
	}, nil
}

// CheckIn verifies the member holds a current period, enforces the plan's
// weekday mask, and burns one class credit when the plan is credit-limited.
func (r *repository) CheckIn(ctx context.Context, tenantID string, memberID int, now time.Time) (*Period, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var row struct {
		Period
		WeekdayMask *int `db:"plan_weekday_mask"`
	}
	err = tx.QueryRowxContext(ctx, `
		SELECT
			p.id, p.tenant_id, p.member_id, p.plan_id, p.start_date, p.end_date,
			p.paid_price_cents, p.remaining_credits, p.active, p.created_at,
			pl.weekday_mask AS plan_weekday_mask
		FROM membership_periods p
		JOIN membership_plans pl ON p.plan_id = pl.id
		WHERE p.tenant_id = $1 AND p.member_id = $2 AND p.active = TRUE
		  AND p.start_date <= $3 AND p.end_date >= $3
		ORDER BY p.end_date DESC
		LIMIT 1
		FOR UPDATE OF p
	`, tenantID, memberID, now).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCurrentPeriod
		}
		return nil, err
	}

	plan := Plan{WeekdayMask: row.WeekdayMask}
	if !plan.AllowsWeekday(now.Weekday()) {
		return nil, ErrDayNotAllowed
	}

	if row.RemainingCredits != nil {
		if *row.RemainingCredits <= 0 {
			return nil, ErrNoCredits
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE membership_periods
			SET remaining_credits = remaining_credits - 1
			WHERE id = $1
		`, row.ID)
		if err != nil {
			return nil, err
		}

		remaining := *row.RemainingCredits - 1
		row.RemainingCredits = &remaining
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &row.Period, nil
}
