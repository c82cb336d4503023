package payment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, rec *Record) (*Record, error)
	DueForRetry(ctx context.Context, now time.Time) ([]DueRecord, error)
	MarkPaid(ctx context.Context, id int, paidAt time.Time) error
	MarkRetryFailure(ctx context.Context, id int, nextRetryAt *time.Time, terminal bool) error
	ListForMember(ctx context.Context, tenantID string, memberID int) ([]Record, error)
}
