/**
 * @description
 * Event payloads published to the message broker as obligations move through
 * their lifecycle. Downstream consumers (dashboards, bookkeeping exports)
 * subscribe by routing key on the topic exchange.
 */
package domain

import "time"

// Routing keys for obligation lifecycle events.
const (
	EventObligationCreated   = "obligation.created"
	EventObligationLate      = "obligation.late"
	EventObligationPaid      = "obligation.paid"
	EventObligationPartial   = "obligation.partial"
	EventObligationEscalated = "obligation.escalated"
)

// ObligationEvent is the payload published for every obligation lifecycle
// transition.
type ObligationEvent struct {
	ObligationID string    `json:"obligation_id"`
	TenantID     string    `json:"tenant_id"`
	UnitID       string    `json:"unit_id"`
	AmountDue    int64     `json:"amount_due"`
	DueDate      time.Time `json:"due_date"`
	Status       string    `json:"status"`
	DaysLate     int       `json:"days_late,omitempty"`
	FormType     string    `json:"form_type,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
