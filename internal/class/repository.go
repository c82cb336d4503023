package class

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrSessionNotFound     = errors.New("class session not found")
	ErrSessionInactive     = errors.New("class session is inactive")
	ErrSessionFull         = errors.New("class session is full")
	ErrAlreadyReserved     = errors.New("member already has a reservation for this session")
	ErrReservationNotFound = errors.New("reservation not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	query := `
		INSERT INTO class_sessions (tenant_id, name, instructor, start_time, duration_min, capacity, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, tenant_id, name, instructor, start_time, duration_min, capacity, active, reserved_count, created_at
	`

	var created Session
	err := r.db.GetContext(ctx, &created, query,
		session.TenantID, session.Name, session.Instructor, session.StartTime, session.DurationMin, session.Capacity)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error) {
	query := `
		SELECT id, tenant_id, name, instructor, start_time, duration_min, capacity, active, reserved_count, created_at
		FROM class_sessions
		WHERE tenant_id = $1 AND id = $2
	`

	var session Session
	err := r.db.GetContext(ctx, &session, query, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// Reserve creates the reservation and bumps reserved_count in one
// transaction. The session row lock serializes concurrent reserves, cancels
// and promotions on the same session; there is no intermediate state where
// the counter and the reservation rows disagree.
func (r *repository) Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var session Session
	err = tx.QueryRowxContext(ctx, `
		SELECT id, tenant_id, name, instructor, start_time, duration_min, capacity, active, reserved_count, created_at
		FROM class_sessions
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, sessionID).StructScan(&session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if !session.Active {
		return nil, ErrSessionInactive
	}

	if session.ReservedCount >= session.Capacity {
		return nil, ErrSessionFull
	}

	var alreadyReserved bool
	err = tx.GetContext(ctx, &alreadyReserved, `
		SELECT EXISTS(
			SELECT 1 FROM class_reservations
			WHERE tenant_id = $1 AND session_id = $2 AND member_id = $3 AND status = 'booked'
		)
	`, tenantID, sessionID, memberID)
	if err != nil {
		return nil, err
	}
	if alreadyReserved {
		return nil, ErrAlreadyReserved
	}

	var reservation Reservation
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO class_reservations (tenant_id, session_id, member_id, status)
		VALUES ($1, $2, $3, 'booked')
		RETURNING id, tenant_id, session_id, member_id, status, created_at
	`, tenantID, sessionID, memberID).StructScan(&reservation)
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

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &reservation, nil
}

// CancelReservation soft-cancels the member's booked reservation and
// decrements reserved_count, floored at zero, in one transaction. Cancelled
// rows are retained as history. Returns the session id for the follow-up
// waitlist promotion.
func (r *repository) CancelReservation(ctx context.Context, tenantID string, reservationID, memberID int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var sessionID int
	err = tx.GetContext(ctx, &sessionID, `
		UPDATE class_reservations
		SET status = 'cancelled'
		WHERE tenant_id = $1 AND id = $2 AND member_id = $3 AND status = 'booked'
		RETURNING session_id
	`, tenantID, reservationID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrReservationNotFound
		}
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE class_sessions
		SET reserved_count = GREATEST(reserved_count - 1, 0)
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, sessionID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return sessionID, nil
}

func (r *repository) ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error) {
	query := `
		SELECT id, tenant_id, session_id, member_id, status, created_at
		FROM class_reservations
		WHERE tenant_id = $1 AND member_id = $2
		ORDER BY created_at DESC
	`

	var reservations []Reservation
	err := r.db.SelectContext(ctx, &reservations, query, tenantID, memberID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error) {
	query := `
		SELECT
			r.id, r.tenant_id, r.session_id, r.member_id, r.status, r.created_at,
			m.name AS member_name,
			m.phone AS member_phone
		FROM class_reservations r
		JOIN members m ON r.member_id = m.id
		WHERE r.tenant_id = $1 AND r.session_id = $2 AND r.status = 'booked'
		ORDER BY r.created_at ASC
	`

	var roster []RosterEntry
	err := r.db.SelectContext(ctx, &roster, query, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	return roster, nil
}

func (r *repository) MemberContact(ctx context.Context, tenantID string, memberID int) (string, string, error) {
	query := `
		SELECT phone, name
		FROM members
		WHERE tenant_id = $1 AND id = $2 AND deleted = FALSE
	`

	var contact struct {
		Phone string `db:"phone"`
		Name  string `db:"name"`
	}
	err := r.db.GetContext(ctx, &contact, query, tenantID, memberID)
	if err != nil {
		return "", "", err
	}

	return contact.Phone, contact.Name, nil
}
