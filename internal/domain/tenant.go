/**
 * @description
 * Tenant contact details used for notification delivery and payment request
 * links.
 */
package domain

import "time"

// Tenant holds the contact information the dispatcher and payment-link
// generator need.
type Tenant struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
