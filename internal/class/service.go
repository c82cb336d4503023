package class

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notify"
	"gymflow/internal/waitlist"
)

type Service interface {
	Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error)
	Cancel(ctx context.Context, tenantID string, reservationID, memberID int) error
	CreateSession(ctx context.Context, session *Session) (*Session, error)
	GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error)
	ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error)
	SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error)
}

type service struct {
	repo     Repository
	promoter waitlist.Service
	notifier notify.Notifier
}

func NewService(repo Repository, promoter waitlist.Service, notifier notify.Notifier) Service {
	return &service{
		repo:     repo,
		promoter: promoter,
		notifier: notifier,
	}
}

func (s *service) Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error) {
	reservation, err := s.repo.Reserve(ctx, tenantID, sessionID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionFull):
			metrics.RecordReservation("full")
		case errors.Is(err, ErrAlreadyReserved):
			metrics.RecordReservation("duplicate")
		default:
			metrics.RecordReservation("error")
		}
		return nil, err
	}

	metrics.RecordReservation("booked")
	logger.Info("Class slot reserved",
		"tenant_id", tenantID,
		"session_id", sessionID,
		"member_id", memberID,
		"reservation_id", reservation.ID,
	)

	if phone, name, cerr := s.repo.MemberContact(ctx, tenantID, memberID); cerr == nil {
		if qerr := s.notifier.Queue(ctx, notify.Message{
			Phone: phone,
			Name:  name,
			Kind:  notify.KindBookingConfirmed,
			Params: map[string]string{
				"session_id": strconv.Itoa(sessionID),
			},
		}); qerr != nil {
			logger.Errorf("Failed to queue booking notification for member %d: %v", memberID, qerr)
		}
	}

	return reservation, nil
}

// Cancel frees the member's slot and then promotes the earliest waitlisted
// member into it. The cancellation commits on its own: a promotion failure
// is logged and never rolls the cancellation back.
func (s *service) Cancel(ctx context.Context, tenantID string, reservationID, memberID int) error {
	sessionID, err := s.repo.CancelReservation(ctx, tenantID, reservationID, memberID)
	if err != nil {
		return err
	}

	metrics.RecordCancellation()
	logger.Info("Reservation cancelled",
		"tenant_id", tenantID,
		"reservation_id", reservationID,
		"member_id", memberID,
	)

	if _, perr := s.promoter.PromoteNext(ctx, tenantID, sessionID); perr != nil {
		logger.Errorf("Waitlist promotion after cancel failed for session %d: %v", sessionID, perr)
	}

	return nil
}

func (s *service) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	if session.Capacity <= 0 {
		return nil, errors.New("session capacity must be positive")
	}
	if session.StartTime.Before(time.Now()) {
		return nil, errors.New("cannot schedule a session in the past")
	}
	return s.repo.CreateSession(ctx, session)
}

func (s *service) GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error) {
	return s.repo.GetSession(ctx, tenantID, sessionID)
}

func (s *service) ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error) {
	return s.repo.ListMemberReservations(ctx, tenantID, memberID)
}

func (s *service) SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error) {
	return s.repo.SessionRoster(ctx, tenantID, sessionID)
}
