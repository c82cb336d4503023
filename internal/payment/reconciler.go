package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gymflow/internal/gateway"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notify"
	"gymflow/internal/tenant"
)

// subscriptionRenewalDays is the fixed extension applied to a tenant
// subscription per confirmed payment.
const subscriptionRenewalDays = 30

var (
	ErrTargetNotFound = errors.New("payment target not found")

	// ErrPeriodNotFound reports a payment reference pointing at a
	// membership period that does not exist.
	ErrPeriodNotFound = errors.New("membership period not found")
)

// MembershipStore applies a confirmed payment to a membership period:
// recompute the stacked dates, activate, append the paid record. Returns
// AlreadyActive when a duplicate webhook replays an applied payment.
// PeriodBilling reads the period's billing identity without modifying it.
type MembershipStore interface {
	ActivatePeriod(ctx context.Context, periodID int, now time.Time) (*Activation, error)
	PeriodBilling(ctx context.Context, periodID int) (*Activation, error)
}

// TenantStore extends a tenant's SaaS subscription.
type TenantStore interface {
	ExtendSubscription(ctx context.Context, id string, until time.Time) error
}

type Reconciler struct {
	gw          gateway.Client
	memberships MembershipStore
	tenants     TenantStore
	records     Repository
	notifier    notify.Notifier
	nowFn       func() time.Time
}

func NewReconciler(gw gateway.Client, memberships MembershipStore, tenants TenantStore, records Repository, notifier notify.Notifier) *Reconciler {
	return &Reconciler{
		gw:          gw,
		memberships: memberships,
		tenants:     tenants,
		records:     records,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// HandleCallback applies one gateway payment callback. Non-approved payments
// are ignored without state change; the gateway retries those itself. The
// caller (webhook handler) answers 200 to the gateway regardless of the
// returned error.
func (r *Reconciler) HandleCallback(ctx context.Context, paymentID string) error {
	status, err := r.gw.PaymentStatus(ctx, paymentID)
	if err != nil {
		metrics.RecordReconciliation("gateway_error")
		return fmt.Errorf("failed to query payment %s: %w", paymentID, err)
	}

	if status == gateway.StatusRejected {
		return r.recordRejection(ctx, paymentID)
	}

	if status != gateway.StatusApproved {
		logger.Info("Ignoring non-approved payment callback", "payment_id", paymentID, "status", string(status))
		metrics.RecordReconciliation("ignored")
		return nil
	}

	rawRef, err := r.gw.ExternalReference(ctx, paymentID)
	if err != nil {
		metrics.RecordReconciliation("gateway_error")
		return fmt.Errorf("failed to fetch reference for payment %s: %w", paymentID, err)
	}

	ref, err := ParseReference(rawRef)
	if err != nil {
		metrics.RecordReconciliation("bad_reference")
		return fmt.Errorf("payment %s: %w", paymentID, err)
	}

	switch ref.Kind {
	case RefSubscription:
		return r.applySubscription(ctx, paymentID, ref.TenantID)
	default:
		return r.applyMembership(ctx, paymentID, ref.PeriodID)
	}
}

// recordRejection writes an unpaid record for a rejected membership payment
// so the retry sweep owns the follow-up attempts. Rejected tenant-subscription
// payments are ignored; the gateway re-invoices those on its own schedule.
func (r *Reconciler) recordRejection(ctx context.Context, paymentID string) error {
	rawRef, err := r.gw.ExternalReference(ctx, paymentID)
	if err != nil {
		metrics.RecordReconciliation("gateway_error")
		return fmt.Errorf("failed to fetch reference for payment %s: %w", paymentID, err)
	}

	ref, err := ParseReference(rawRef)
	if err != nil {
		metrics.RecordReconciliation("bad_reference")
		return fmt.Errorf("payment %s: %w", paymentID, err)
	}

	if ref.Kind == RefSubscription {
		logger.Info("Ignoring rejected subscription payment", "payment_id", paymentID, "tenant_id", ref.TenantID)
		metrics.RecordReconciliation("ignored")
		return nil
	}

	billing, err := r.memberships.PeriodBilling(ctx, ref.PeriodID)
	if err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			metrics.RecordReconciliation("period_not_found")
			return fmt.Errorf("payment %s: %w: %v", paymentID, ErrTargetNotFound, err)
		}
		metrics.RecordReconciliation("store_error")
		return fmt.Errorf("payment %s: %w", paymentID, err)
	}

	memberID := billing.MemberID
	nextRetry := r.nowFn().Add(retryBackoff)
	rec, err := r.records.Create(ctx, &Record{
		TenantID:     billing.TenantID,
		MemberID:     &memberID,
		AmountCents:  billing.AmountCents,
		Method:       MethodGateway,
		ExternalID:   &paymentID,
		FailureCount: 1,
		NextRetryAt:  &nextRetry,
	})
	if err != nil {
		metrics.RecordReconciliation("store_error")
		return fmt.Errorf("payment %s: failed to record rejection: %w", paymentID, err)
	}

	logger.Info("Rejected payment recorded for retry",
		"payment_id", paymentID,
		"record_id", rec.ID,
		"period_id", ref.PeriodID,
		"next_retry", nextRetry.Format(time.DateOnly),
	)
	metrics.RecordReconciliation("rejected")

	if qerr := r.notifier.Queue(ctx, notify.Message{
		Phone: billing.MemberPhone,
		Name:  billing.MemberName,
		Kind:  notify.KindPaymentRetry,
		Params: map[string]string{
			"amount":     strconv.FormatInt(billing.AmountCents, 10),
			"next_retry": nextRetry.Format(time.DateOnly),
		},
	}); qerr != nil {
		logger.Errorf("Failed to queue retry notification for member %d: %v", billing.MemberID, qerr)
	}

	return nil
}

func (r *Reconciler) applySubscription(ctx context.Context, paymentID, tenantID string) error {
	until := r.nowFn().AddDate(0, 0, subscriptionRenewalDays)

	if err := r.tenants.ExtendSubscription(ctx, tenantID, until); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			metrics.RecordReconciliation("tenant_not_found")
			return fmt.Errorf("payment %s: %w: %v", paymentID, ErrTargetNotFound, err)
		}
		metrics.RecordReconciliation("store_error")
		return fmt.Errorf("payment %s: failed to extend subscription for tenant %s: %w", paymentID, tenantID, err)
	}

	logger.Info("Tenant subscription extended",
		"tenant_id", tenantID,
		"payment_id", paymentID,
		"until", until.Format(time.DateOnly),
	)
	metrics.RecordReconciliation("subscription")
	return nil
}

func (r *Reconciler) applyMembership(ctx context.Context, paymentID string, periodID int) error {
	act, err := r.memberships.ActivatePeriod(ctx, periodID, r.nowFn())
	if err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			metrics.RecordReconciliation("period_not_found")
			return fmt.Errorf("payment %s: %w: %v", paymentID, ErrTargetNotFound, err)
		}
		metrics.RecordReconciliation("store_error")
		return fmt.Errorf("payment %s: failed to activate period %d: %w", paymentID, periodID, err)
	}

	if act.AlreadyActive {
		// Duplicate webhook: the period was applied before, nothing to do.
		logger.Info("Duplicate payment callback ignored", "payment_id", paymentID, "period_id", periodID)
		metrics.RecordReconciliation("duplicate")
		return nil
	}

	if qerr := r.notifier.Queue(ctx, notify.Message{
		Phone: act.MemberPhone,
		Name:  act.MemberName,
		Kind:  notify.KindMembershipActivated,
		Params: map[string]string{
			"valid_until": act.EndDate.Format(time.DateOnly),
			"amount":      strconv.FormatInt(act.AmountCents, 10),
		},
	}); qerr != nil {
		// Best-effort side channel; the activation is already committed.
		logger.Errorf("Failed to queue activation notification for member %d: %v", act.MemberID, qerr)
	}

	logger.Info("Membership period activated",
		"period_id", act.PeriodID,
		"member_id", act.MemberID,
		"payment_id", paymentID,
	)
	metrics.RecordReconciliation("membership")
	return nil
}
