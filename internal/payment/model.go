package payment

import "time"

type Method string

const (
	MethodCash    Method = "cash"
	MethodGateway Method = "gateway"
)

// Record is one payment attempt. Rows are never deleted; reconciliation and
// the retry sweep only flip flags on them.
type Record struct {
	ID              int        `db:"id" json:"id"`
	TenantID        string     `db:"tenant_id" json:"tenant_id"`
	MemberID        *int       `db:"member_id" json:"member_id,omitempty"`
	AmountCents     int64      `db:"amount_cents" json:"amount_cents"`
	Method          Method     `db:"method" json:"method"`
	Paid            bool       `db:"paid" json:"paid"`
	ExternalID      *string    `db:"external_id" json:"external_id,omitempty"`
	FailureCount    int        `db:"failure_count" json:"failure_count"`
	NextRetryAt     *time.Time `db:"next_retry_at" json:"next_retry_at,omitempty"`
	TerminalFailure bool       `db:"terminal_failure" json:"terminal_failure"`
	PaidAt          *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// DueRecord is a retry candidate joined with the owning member's contact so
// the sweep can queue notifications without extra lookups.
type DueRecord struct {
	Record
	MemberPhone *string `db:"member_phone"`
	MemberName  *string `db:"member_name"`
}

// Activation is what the membership store reports back to the reconciler
// after applying a confirmed payment to a period.
type Activation struct {
	PeriodID      int
	TenantID      string
	MemberID      int
	MemberPhone   string
	MemberName    string
	EndDate       time.Time
	AmountCents   int64
	AlreadyActive bool
}
