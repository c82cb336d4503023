package payment

import (
	"context"
	"strconv"
	"time"

	"gymflow/internal/gateway"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notify"
)

const (
	maxRetryAttempts = 3
	retryBackoff     = 72 * time.Hour
)

// RetryScheduler sweeps failed recurring payments and retries them with
// bounded attempts. It is driven by an external time trigger.
type RetryScheduler struct {
	payments Repository
	gw       gateway.Client
	notifier notify.Notifier
	nowFn    func() time.Time
}

func NewRetryScheduler(payments Repository, gw gateway.Client, notifier notify.Notifier) *RetryScheduler {
	return &RetryScheduler{
		payments: payments,
		gw:       gw,
		notifier: notifier,
		nowFn:    time.Now,
	}
}

// Sweep processes every due record once and returns the number of records
// processed, not the number that succeeded: callers inspect record state for
// actual outcomes. Per-record failures are logged and never abort the sweep.
func (s *RetryScheduler) Sweep(ctx context.Context) (int, error) {
	now := s.nowFn()

	due, err := s.payments.DueForRetry(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, rec := range due {
		processed++
		s.retryOne(ctx, rec, now)
	}

	if processed > 0 {
		logger.Info("Payment retry sweep finished", "processed", processed)
	}
	return processed, nil
}

func (s *RetryScheduler) retryOne(ctx context.Context, rec DueRecord, now time.Time) {
	externalID := strconv.Itoa(rec.ID)
	if rec.ExternalID != nil {
		externalID = *rec.ExternalID
	}

	if err := s.gw.CollectPayment(ctx, externalID, rec.AmountCents); err != nil {
		s.recordFailure(ctx, rec, now, err)
		return
	}

	if err := s.payments.MarkPaid(ctx, rec.ID, now); err != nil {
		logger.Errorf("Failed to mark payment record %d paid: %v", rec.ID, err)
		metrics.RecordPaymentRetry("store_error")
		return
	}

	metrics.RecordPaymentRetry("success")
	s.notifyMember(ctx, rec, notify.KindPaymentReceived, map[string]string{
		"amount": strconv.FormatInt(rec.AmountCents, 10),
	})
}

func (s *RetryScheduler) recordFailure(ctx context.Context, rec DueRecord, now time.Time, cause error) {
	failures := rec.FailureCount + 1

	if failures >= maxRetryAttempts {
		if err := s.payments.MarkRetryFailure(ctx, rec.ID, nil, true); err != nil {
			logger.Errorf("Failed to mark payment record %d terminal: %v", rec.ID, err)
			metrics.RecordPaymentRetry("store_error")
			return
		}

		logger.Error("Payment permanently failed, operator intervention required",
			"record_id", rec.ID,
			"tenant_id", rec.TenantID,
			"attempts", failures,
			"cause", cause.Error(),
		)
		metrics.RecordPaymentRetry("terminal")
		s.notifyMember(ctx, rec, notify.KindPaymentFailed, map[string]string{
			"amount": strconv.FormatInt(rec.AmountCents, 10),
		})
		return
	}

	nextRetry := now.Add(retryBackoff)
	if err := s.payments.MarkRetryFailure(ctx, rec.ID, &nextRetry, false); err != nil {
		logger.Errorf("Failed to reschedule payment record %d: %v", rec.ID, err)
		metrics.RecordPaymentRetry("store_error")
		return
	}

	logger.Info("Payment retry failed, rescheduled",
		"record_id", rec.ID,
		"attempt", failures,
		"next_retry", nextRetry.Format(time.DateOnly),
	)
	metrics.RecordPaymentRetry("failure")
	s.notifyMember(ctx, rec, notify.KindPaymentRetry, map[string]string{
		"amount":     strconv.FormatInt(rec.AmountCents, 10),
		"next_retry": nextRetry.Format(time.DateOnly),
	})
}

func (s *RetryScheduler) notifyMember(ctx context.Context, rec DueRecord, kind notify.Kind, params map[string]string) {
	if rec.MemberPhone == nil {
		return
	}

	name := ""
	if rec.MemberName != nil {
		name = *rec.MemberName
	}

	if err := s.notifier.Queue(ctx, notify.Message{
		Phone:  *rec.MemberPhone,
		Name:   name,
		Kind:   kind,
		Params: params,
	}); err != nil {
		logger.Errorf("Failed to queue %s notification for record %d: %v", kind, rec.ID, err)
	}
}
