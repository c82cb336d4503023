package waitlist

import "time"

// Entry is one member waiting for a slot in a class session. Promotion order
// is strict FIFO by registration time, ties broken by id.
type Entry struct {
	ID           int       `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	SessionID    int       `db:"session_id" json:"session_id"`
	MemberID     int       `db:"member_id" json:"member_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// Promotion reports a waitlist entry converted into a reservation.
type Promotion struct {
	MemberID      int    `json:"member_id"`
	ReservationID int    `json:"reservation_id"`
	MemberPhone   string `json:"-"`
	MemberName    string `json:"-"`
}
