package membership

import (
	"context"
	"time"

	"gymflow/internal/payment"
)

type Repository interface {
	GetPlan(ctx context.Context, tenantID string, planID int) (*Plan, error)
	CreatePlan(ctx context.Context, plan *Plan) (*Plan, error)
	GetMember(ctx context.Context, tenantID string, memberID int) (*Member, error)
	FindMemberByEmail(ctx context.Context, email string) (*Member, error)
	CountActiveMembers(ctx context.Context, tenantID string) (int, error)
	LatestActiveEnd(ctx context.Context, tenantID string, memberID int) (*time.Time, error)
	CreatePeriod(ctx context.Context, period *Period, settled bool) (*Period, error)
	ListPeriods(ctx context.Context, tenantID string, memberID int) ([]Period, error)
	ActivatePeriod(ctx context.Context, periodID int, now time.Time) (*payment.Activation, error)
	PeriodBilling(ctx context.Context, periodID int) (*payment.Activation, error)
	CheckIn(ctx context.Context, tenantID string, memberID int, now time.Time) (*Period, error)
}
