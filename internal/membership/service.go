package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gymflow/internal/auth"
	"gymflow/internal/gateway"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notify"
	"gymflow/internal/payment"
	"gymflow/internal/tenant"
)

var (
	ErrPlanNotFound       = errors.New("plan not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrTenantSuspended    = errors.New("tenant subscription suspended")
	ErrMemberLimitReached = errors.New("tenant member limit reached")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type PurchaseResult struct {
	Period     *Period `json:"period"`
	PaymentURL string  `json:"payment_url,omitempty"`
}

type Service interface {
	Purchase(ctx context.Context, tenantID string, memberID, planID int, method payment.Method) (*PurchaseResult, error)
	Renew(ctx context.Context, tenantID string, memberID, planID int) (*PurchaseResult, error)
	CheckIn(ctx context.Context, tenantID string, memberID int) (*Period, error)
	ListPeriods(ctx context.Context, tenantID string, memberID int) ([]Period, error)
	CreatePlan(ctx context.Context, plan *Plan) (*Plan, error)
	Authenticate(ctx context.Context, email, password string) (*Member, error)
}

type service struct {
	repo           Repository
	tenants        tenant.Repository
	gw             gateway.Client
	notifier       notify.Notifier
	webhookBaseURL string
	nowFn          func() time.Time
}

func NewService(repo Repository, tenants tenant.Repository, gw gateway.Client, notifier notify.Notifier, webhookBaseURL string) Service {
	return &service{
		repo:           repo,
		tenants:        tenants,
		gw:             gw,
		notifier:       notifier,
		webhookBaseURL: webhookBaseURL,
		nowFn:          time.Now,
	}
}

// Purchase creates a membership period with stacked dates. Cash settles
// immediately: the period activates and a paid record is written in the same
// transaction. Gateway purchases stay inactive until the webhook confirms
// payment.
func (s *service) Purchase(ctx context.Context, tenantID string, memberID, planID int, method payment.Method) (*PurchaseResult, error) {
	now := s.nowFn()

	tnt, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}
	if tnt.Suspended(now) {
		return nil, ErrTenantSuspended
	}

	// Plan-tier enforcement: a tenant over its member cap stops taking new
	// purchases until it upgrades. A nil cap means unlimited.
	if tnt.MaxMembers != nil {
		count, cerr := s.repo.CountActiveMembers(ctx, tenantID)
		if cerr != nil {
			return nil, cerr
		}
		if count > *tnt.MaxMembers {
			return nil, ErrMemberLimitReached
		}
	}

	plan, err := s.repo.GetPlan(ctx, tenantID, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	member, err := s.repo.GetMember(ctx, tenantID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	start, end, err := s.stackedDates(ctx, tenantID, memberID, plan.DurationDays, now)
	if err != nil {
		return nil, err
	}

	var credits *int
	if plan.ClassCredits != nil {
		c := *plan.ClassCredits
		credits = &c
	}

	settled := method == payment.MethodCash
	period, err := s.repo.CreatePeriod(ctx, &Period{
		TenantID:         tenantID,
		MemberID:         memberID,
		PlanID:           planID,
		StartDate:        start,
		EndDate:          end,
		PaidPriceCents:   plan.PriceCents,
		RemainingCredits: credits,
		Active:           settled,
	}, settled)
	if err != nil {
		return nil, err
	}

	metrics.RecordPurchase(string(method))

	if settled {
		if qerr := s.notifier.Queue(ctx, notify.Message{
			Phone: member.Phone,
			Name:  member.Name,
			Kind:  notify.KindPaymentReceived,
			Params: map[string]string{
				"plan":        plan.Name,
				"valid_until": end.Format(time.DateOnly),
			},
		}); qerr != nil {
			logger.Errorf("Failed to queue purchase notification for member %d: %v", memberID, qerr)
		}

		return &PurchaseResult{Period: period}, nil
	}

	url, err := s.gw.CreatePaymentLink(ctx, gateway.LinkRequest{
		Description:       plan.Name,
		AmountCents:       plan.PriceCents,
		PayerEmail:        member.Email,
		ExternalReference: payment.MembershipReference(period.ID),
		NotificationURL:   s.webhookBaseURL + "/webhooks/payments",
	})
	if err != nil {
		// The inactive period stays behind as a pending checkout; it never
		// activates unless a payment for it is confirmed.
		return nil, fmt.Errorf("failed to create payment link: %w", err)
	}

	return &PurchaseResult{Period: period, PaymentURL: url}, nil
}

func (s *service) Renew(ctx context.Context, tenantID string, memberID, planID int) (*PurchaseResult, error) {
	return s.Purchase(ctx, tenantID, memberID, planID, payment.MethodGateway)
}

// stackedDates chains the new period onto the member's latest active period:
// no gap, no overlap. The previous end date is the next start date; end dates
// are exclusive boundaries.
func (s *service) stackedDates(ctx context.Context, tenantID string, memberID, durationDays int, now time.Time) (time.Time, time.Time, error) {
	latestEnd, err := s.repo.LatestActiveEnd(ctx, tenantID, memberID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := now
	if latestEnd != nil && latestEnd.After(now) {
		start = *latestEnd
	}

	return start, start.AddDate(0, 0, durationDays), nil
}

func (s *service) CheckIn(ctx context.Context, tenantID string, memberID int) (*Period, error) {
	period, err := s.repo.CheckIn(ctx, tenantID, memberID, s.nowFn())
	if err != nil {
		return nil, err
	}

	logger.Info("Member checked in", "tenant_id", tenantID, "member_id", memberID, "period_id", period.ID)
	return period, nil
}

func (s *service) ListPeriods(ctx context.Context, tenantID string, memberID int) ([]Period, error) {
	return s.repo.ListPeriods(ctx, tenantID, memberID)
}

func (s *service) CreatePlan(ctx context.Context, plan *Plan) (*Plan, error) {
	if plan.DurationDays <= 0 {
		return nil, errors.New("plan duration must be positive")
	}
	return s.repo.CreatePlan(ctx, plan)
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	member, err := s.repo.FindMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !member.Active || !auth.CheckPassword(member.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return member, nil
}

// methodFromString maps the API payment method to the internal one.
func methodFromString(s string) (payment.Method, error) {
	switch s {
	case "cash":
		return payment.MethodCash, nil
	case "gateway":
		return payment.MethodGateway, nil
	default:
		return "", errors.New("unknown payment method: " + strconv.Quote(s))
	}
}
