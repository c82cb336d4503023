package class

import "context"

type Repository interface {
	CreateSession(ctx context.Context, session *Session) (*Session, error)
	GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error)
	Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error)
	CancelReservation(ctx context.Context, tenantID string, reservationID, memberID int) (int, error)
	ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error)
	SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error)
	MemberContact(ctx context.Context, tenantID string, memberID int) (phone, name string, err error)
}
