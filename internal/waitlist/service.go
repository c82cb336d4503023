package waitlist

import (
	"context"
	"errors"
	"strconv"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notify"
)

type Service interface {
	Join(ctx context.Context, tenantID string, sessionID, memberID int) (int, error)
	PromoteNext(ctx context.Context, tenantID string, sessionID int) (*Promotion, error)
}

type service struct {
	repo     Repository
	notifier notify.Notifier
}

func NewService(repo Repository, notifier notify.Notifier) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
	}
}

// Join appends the member to the session's waitlist and returns the queue
// length. A member who already holds a booked reservation or a waitlist entry
// for the session gets a silent success: the no-op keeps client retry logic
// simple.
func (s *service) Join(ctx context.Context, tenantID string, sessionID, memberID int) (int, error) {
	hasReservation, err := s.repo.HasActiveReservation(ctx, tenantID, sessionID, memberID)
	if err != nil {
		return 0, err
	}

	if !hasReservation {
		hasEntry, err := s.repo.HasEntry(ctx, tenantID, sessionID, memberID)
		if err != nil {
			return 0, err
		}

		if !hasEntry {
			entry, err := s.repo.Append(ctx, tenantID, sessionID, memberID)
			if err != nil {
				return 0, err
			}

			logger.Info("Member joined waitlist",
				"tenant_id", tenantID,
				"session_id", sessionID,
				"member_id", memberID,
				"entry_id", entry.ID,
			)
		}
	}

	return s.repo.CountForSession(ctx, tenantID, sessionID)
}

// PromoteNext fills one freed slot from the waitlist. An empty waitlist is a
// no-op, not an error. The promotion notification is best-effort and never
// fails the promotion.
func (s *service) PromoteNext(ctx context.Context, tenantID string, sessionID int) (*Promotion, error) {
	promo, err := s.repo.PromoteNext(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, ErrEmptyWaitlist) {
			return nil, nil
		}
		return nil, err
	}

	metrics.RecordPromotion()
	logger.Info("Waitlist member promoted",
		"tenant_id", tenantID,
		"session_id", sessionID,
		"member_id", promo.MemberID,
		"reservation_id", promo.ReservationID,
	)

	if err := s.notifier.Queue(ctx, notify.Message{
		Phone: promo.MemberPhone,
		Name:  promo.MemberName,
		Kind:  notify.KindWaitlistPromoted,
		Params: map[string]string{
			"session_id": strconv.Itoa(sessionID),
		},
	}); err != nil {
		logger.Errorf("Failed to queue promotion notification for member %d: %v", promo.MemberID, err)
	}

	return promo, nil
}
