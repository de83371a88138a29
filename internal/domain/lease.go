/**
 * @description
 * This file defines the Lease domain model: the tenant-unit relationship and
 * the rent terms (amount, due day, lease window) that drive obligation
 * generation. Leases are soft-retained; payment history keeps referencing
 * them after they end.
 */
package domain

import (
	"fmt"
	"time"
)

// Lease represents a tenant's agreed occupancy and rent terms for a unit.
// RentAmount is in cents.
type Lease struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	UnitID     string     `json:"unit_id"`
	RentAmount int64      `json:"rent_amount"`
	RentDueDay int        `json:"rent_due_day"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"` // nil = month-to-month
	IsPrimary  bool       `json:"is_primary"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ValidationError reports malformed lease or payment input. It is returned
// before any store write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the lease terms before the lease is persisted.
func (l Lease) Validate() error {
	if l.TenantID == "" {
		return &ValidationError{Field: "tenant_id", Reason: "must not be empty"}
	}
	if l.UnitID == "" {
		return &ValidationError{Field: "unit_id", Reason: "must not be empty"}
	}
	if l.RentAmount < 0 {
		return &ValidationError{Field: "rent_amount", Reason: "must not be negative"}
	}
	if l.RentDueDay < 1 || l.RentDueDay > 31 {
		return &ValidationError{Field: "rent_due_day", Reason: "must be between 1 and 31"}
	}
	if l.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "must be set"}
	}
	if l.EndDate != nil && l.EndDate.Before(l.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}

// ActiveOn reports whether the lease covers the given date.
func (l Lease) ActiveOn(date time.Time) bool {
	day := DateOnly(date)
	if day.Before(DateOnly(l.StartDate)) {
		return false
	}
	if l.EndDate != nil && day.After(DateOnly(*l.EndDate)) {
		return false
	}
	return true
}
