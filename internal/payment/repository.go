package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrRecordNotFound = errors.New("payment record not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *Record) (*Record, error) {
	query := `
		INSERT INTO payment_records (tenant_id, member_id, amount_cents, method, paid, external_id, failure_count, next_retry_at, terminal_failure, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, tenant_id, member_id, amount_cents, method, paid, external_id, failure_count, next_retry_at, terminal_failure, paid_at, created_at
	`

	var created Record
	err := r.db.GetContext(ctx, &created, query,
		rec.TenantID, rec.MemberID, rec.AmountCents, rec.Method, rec.Paid,
		rec.ExternalID, rec.FailureCount, rec.NextRetryAt, rec.TerminalFailure, rec.PaidAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// DueForRetry is a tenant-agnostic system sweep: it reads across all tenants
// by design.
func (r *repository) DueForRetry(ctx context.Context, now time.Time) ([]DueRecord, error) {
	query := `
		SELECT
			p.id, p.tenant_id, p.member_id, p.amount_cents, p.method, p.paid,
			p.external_id, p.failure_count, p.next_retry_at, p.terminal_failure,
			p.paid_at, p.created_at,
			m.phone AS member_phone,
			m.name AS member_name
		FROM payment_records p
		LEFT JOIN members m ON p.member_id = m.id
		WHERE p.paid = FALSE
		  AND p.terminal_failure = FALSE
		  AND p.next_retry_at IS NOT NULL
		  AND p.next_retry_at <= $1
		  AND p.failure_count < 3
		ORDER BY p.next_retry_at ASC
	`

	var records []DueRecord
	err := r.db.SelectContext(ctx, &records, query, now)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *repository) MarkPaid(ctx context.Context, id int, paidAt time.Time) error {
	query := `
		UPDATE payment_records
		SET paid = TRUE, next_retry_at = NULL, paid_at = $1
		WHERE id = $2 AND paid = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, paidAt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (r *repository) MarkRetryFailure(ctx context.Context, id int, nextRetryAt *time.Time, terminal bool) error {
	query := `
		UPDATE payment_records
		SET failure_count = failure_count + 1, next_retry_at = $1, terminal_failure = $2
		WHERE id = $3 AND paid = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, nextRetryAt, terminal, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (r *repository) ListForMember(ctx context.Context, tenantID string, memberID int) ([]Record, error) {
	query := `
		SELECT id, tenant_id, member_id, amount_cents, method, paid, external_id, failure_count, next_retry_at, terminal_failure, paid_at, created_at
		FROM payment_records
		WHERE tenant_id = $1 AND member_id = $2
		ORDER BY created_at DESC
	`

	var records []Record
	err := r.db.SelectContext(ctx, &records, query, tenantID, memberID)
	if err != nil {
		return nil, err
	}

	return records, nil
}
