/**
 * @description
 * This file defines the Obligation domain model: one billing period's rent
 * bill for a tenant-unit pair, with its own lifecycle. The amount is a
 * snapshot of the lease's rent at generation time; later lease changes never
 * alter an existing obligation.
 */
package domain

import "time"

// Obligation statuses. Pending is the initial state; late is the only
// time-driven transition; paid and partial are terminal.
const (
	ObligationPending = "pending"
	ObligationPaid    = "paid"
	ObligationLate    = "late"
	ObligationPartial = "partial"
)

// Obligation represents a single month's rent bill. AmountDue is in cents.
type Obligation struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	UnitID            string     `json:"unit_id"`
	AmountDue         int64      `json:"amount_due"`
	DueDate           time.Time  `json:"due_date"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	Status            string     `json:"status"`
	PaymentMethod     *string    `json:"payment_method,omitempty"`
	PaymentRequestRef *string    `json:"payment_request_ref,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsOpen reports whether the obligation still awaits full payment.
func (o Obligation) IsOpen() bool {
	return o.Status == ObligationPending || o.Status == ObligationLate
}

// DateOnly truncates a timestamp to a calendar date at midnight UTC. All
// engine date arithmetic runs on these normalized values.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DueDateInMonth computes the due date for the month containing ref,
// clamping the due day to the last day of shorter months (due day 31 in
// April yields April 30).
func DueDateInMonth(ref time.Time, dueDay int) time.Time {
	year, month, _ := ref.Date()
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := dueDay
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from one date to a
// later date. Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}
