package class

import "time"

const (
	ReservationBooked    = "booked"
	ReservationCancelled = "cancelled"
)

// Session is one scheduled class. ReservedCount is denormalized and must
// always equal the number of booked reservations; every mutation of either
// happens inside one transaction.
type Session struct {
	ID            int       `db:"id" json:"id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	Name          string    `db:"name" json:"name"`
	Instructor    string    `db:"instructor" json:"instructor"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	DurationMin   int       `db:"duration_min" json:"duration_min"`
	Capacity      int       `db:"capacity" json:"capacity"`
	Active        bool      `db:"active" json:"active"`
	ReservedCount int       `db:"reserved_count" json:"reserved_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Reservation struct {
	ID        int       `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	SessionID int       `db:"session_id" json:"session_id"`
	MemberID  int       `db:"member_id" json:"member_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type RosterEntry struct {
	Reservation
	MemberName  string `db:"member_name" json:"member_name"`
	MemberPhone string `db:"member_phone" json:"member_phone"`
}
