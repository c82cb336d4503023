package waitlist

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrEmptyWaitlist = errors.New("waitlist is empty")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, tenantID string, sessionID, memberID int) (*Entry, error) {
	query := `
		INSERT INTO waitlist_entries (tenant_id, session_id, member_id)
		VALUES ($1, $2, $3)
		RETURNING id, tenant_id, session_id, member_id, registered_at
	`

	var entry Entry
	err := r.db.GetContext(ctx, &entry, query, tenantID, sessionID, memberID)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *repository) HasEntry(ctx context.Context, tenantID string, sessionID, memberID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM waitlist_entries
			WHERE tenant_id = $1 AND session_id = $2 AND member_id = $3
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, tenantID, sessionID, memberID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) HasActiveReservation(ctx context.Context, tenantID string, sessionID, memberID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM class_reservations
			WHERE tenant_id = $1 AND session_id = $2 AND member_id = $3 AND status = 'booked'
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, tenantID, sessionID, memberID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// PromoteNext converts the earliest entry into a reservation in a single
// transaction. The session row lock serializes promotions against reserve
// and cancel on the same session, so a concurrent join cannot jump ahead of
// the snapshot read here.
func (r *repository) PromoteNext(ctx context.Context, tenantID string, sessionID int) (*Promotion, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var lockedID int
	err = tx.GetContext(ctx, &lockedID, `
		SELECT id FROM class_sessions
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmptyWaitlist
		}
		return nil, err
	}

	var next struct {
		EntryID     int    `db:"entry_id"`
		MemberID    int    `db:"member_id"`
		MemberPhone string `db:"member_phone"`
		MemberName  string `db:"member_name"`
	}
	err = tx.QueryRowxContext(ctx, `
		SELECT
			w.id AS entry_id,
			w.member_id,
			m.phone AS member_phone,
			m.name AS member_name
		FROM waitlist_entries w
		JOIN members m ON w.member_id = m.id
		WHERE w.tenant_id = $1 AND w.session_id = $2
		ORDER BY w.registered_at ASC, w.id ASC
		LIMIT 1
		FOR UPDATE OF w
	`, tenantID, sessionID).StructScan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmptyWaitlist
		}
		return nil, err
	}

	var reservationID int
	err = tx.GetContext(ctx, &reservationID, `
		INSERT INTO class_reservations (tenant_id, session_id, member_id, status)
		VALUES ($1, $2, $3, 'booked')
		RETURNING id
	`, tenantID, sessionID, next.MemberID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE class_sessions
		SET reserved_count = reserved_count + 1
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM waitlist_entries WHERE id = $1
	`, next.EntryID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Promotion{
		MemberID:      next.MemberID,
		ReservationID: reservationID,
		MemberPhone:   next.MemberPhone,
		MemberName:    next.MemberName,
	}, nil
}

func (r *repository) CountForSession(ctx context.Context, tenantID string, sessionID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM waitlist_entries
		WHERE tenant_id = $1 AND session_id = $2
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, tenantID, sessionID)
	if err != nil {
		return 0, err
	}

	return count, nil
}
