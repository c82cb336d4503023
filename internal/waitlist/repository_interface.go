package waitlist

import "context"

type Repository interface {
	Append(ctx context.Context, tenantID string, sessionID, memberID int) (*Entry, error)
	HasEntry(ctx context.Context, tenantID string, sessionID, memberID int) (bool, error)
	HasActiveReservation(ctx context.Context, tenantID string, sessionID, memberID int) (bool, error)
	PromoteNext(ctx context.Context, tenantID string, sessionID int) (*Promotion, error)
	CountForSession(ctx context.Context, tenantID string, sessionID int) (int, error)
}
