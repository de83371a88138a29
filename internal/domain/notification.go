/**
 * @description
 * This file defines the NotificationRecord domain model and the notification
 * type, channel and delivery-status vocabularies. Records are append-only:
 * one record per dispatch attempt, mutated only as delivery callbacks arrive.
 */
package domain

import "time"

// Notification types.
const (
	NotificationRentDue  = "rent_due"
	NotificationRentLate = "rent_late"
	NotificationReceipt  = "receipt"
	NotificationFormN4   = "form_n4"
	NotificationFormL1   = "form_l1"
)

// Notification channels.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// Delivery statuses. Pending until the transport accepts the message;
// delivered/read arrive via webhook callbacks.
const (
	DeliveryPending   = "pending"
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
	DeliveryFailed    = "failed"
)

// NotificationRecord tracks one outbound notification and its delivery
// outcome. ObligationID is nil for notifications not tied to a bill.
type NotificationRecord struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	ObligationID   *string    `json:"obligation_id,omitempty"`
	Type           string     `json:"type"`
	Channel        string     `json:"channel"`
	DeliveryStatus string     `json:"delivery_status"`
	ExternalID     *string    `json:"external_id,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsFormType reports whether the notification type is a rendered LTB form
// rather than a plain message.
func IsFormType(notificationType string) bool {
	return notificationType == NotificationFormN4 || notificationType == NotificationFormL1
}

var deliveryRank = map[string]int{
	DeliveryPending:   0,
	DeliverySent:      1,
	DeliveryDelivered: 2,
	DeliveryRead:      3,
	DeliveryFailed:    4,
}

// DeliveryStatusAdvances reports whether moving between the two delivery
// statuses goes forward in the lifecycle. Transport callbacks arrive
// out of order and are retried; a record already marked read must never be
// downgraded by a late delivered callback.
func DeliveryStatusAdvances(from, to string) bool {
	return deliveryRank[to] > deliveryRank[from]
}
