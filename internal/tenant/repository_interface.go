package tenant

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
	ExtendSubscription(ctx context.Context, id string, until time.Time) error
}
