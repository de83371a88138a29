/**
 * @description
 * This file contains the HTTP handler for WhatsApp Cloud API webhooks. Meta
 * posts delivery-status callbacks here; the handler validates the HMAC
 * signature, extracts the per-message statuses, and applies them to the
 * matching notification records. It also answers the one-time GET
 * verification challenge Meta sends when the webhook is registered.
 */
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/rently/rent-service/internal/domain"
	"github.com/rently/rent-service/internal/store"
)

// DeliveryUpdater applies transport delivery callbacks to notification
// records.
type DeliveryUpdater interface {
	FindNotificationByExternalID(ctx context.Context, externalID string) (*domain.NotificationRecord, error)
	UpdateDeliveryStatusByExternalID(ctx context.Context, externalID, status string) (*domain.NotificationRecord, error)
}

// WebhookHandler processes incoming WhatsApp status callbacks.
type WebhookHandler struct {
	notifications DeliveryUpdater
	secret        string
	verifyToken   string
}

// NewWebhookHandler creates a new handler for the webhook endpoint.
func NewWebhookHandler(notifications DeliveryUpdater, secret, verifyToken string) *WebhookHandler {
	return &WebhookHandler{notifications: notifications, secret: secret, verifyToken: verifyToken}
}

// whatsappStatusEvent mirrors the subset of the Cloud API callback payload
// the service cares about.
type whatsappStatusEvent struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

var deliveryStatusByCallback = map[string]string{
	"sent":      domain.DeliverySent,
	"delivered": domain.DeliveryDelivered,
	"read":      domain.DeliveryRead,
	"failed":    domain.DeliveryFailed,
}

// Verify answers Meta's GET verification challenge.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("hub.mode") == "subscribe" && r.URL.Query().Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(r.URL.Query().Get("hub.challenge")))
		return
	}
	http.Error(w, "Verification failed", http.StatusForbidden)
}

// ServeHTTP handles a status callback POST.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	if !h.isValidSignature(r.Header.Get("X-Hub-Signature-256"), body) {
		log.Printf("Error: invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event whatsappStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error decoding webhook JSON: %v", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	updated := 0
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				mapped, ok := deliveryStatusByCallback[status.Status]
				if !ok {
					continue
				}
				current, err := h.notifications.FindNotificationByExternalID(r.Context(), status.ID)
				if err != nil {
					if err == store.ErrNotificationNotFound {
						// Not every message id is ours; statuses for
						// conversational replies are expected here.
						continue
					}
					log.Printf("Error looking up notification for %s: %v", status.ID, err)
					continue
				}
				// Callbacks arrive out of order and are retried; never
				// move a record backward in the lifecycle.
				if !domain.DeliveryStatusAdvances(current.DeliveryStatus, mapped) {
					continue
				}
				if _, err := h.notifications.UpdateDeliveryStatusByExternalID(r.Context(), status.ID, mapped); err != nil {
					log.Printf("Error applying delivery status %s for %s: %v", mapped, status.ID, err)
					continue
				}
				updated++
			}
		}
	}

	log.Printf("Webhook processed, %d notification(s) updated", updated)
	w.WriteHeader(http.StatusOK)
}

// isValidSignature checks the X-Hub-Signature-256 HMAC. Validation is
// skipped when no secret is configured (local development).
func (h *WebhookHandler) isValidSignature(signature string, body []byte) bool {
	if h.secret == "" {
		return true
	}
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.TrimPrefix(signature, "sha256=")), []byte(expected))
}
