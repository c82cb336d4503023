package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrTenantNotFound = errors.New("tenant not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	query := `
		SELECT id, name, phone, plan_tier, subscription_status, subscription_end, max_members, created_at
		FROM tenants
		WHERE id = $1
	`

	var t Tenant
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *repository) ExtendSubscription(ctx context.Context, id string, until time.Time) error {
	query := `
		UPDATE tenants
		SET subscription_status = 'active', subscription_end = $1
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, until, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTenantNotFound
	}

	return nil
}
