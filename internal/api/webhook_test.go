package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rently/rent-service/internal/domain"
	"github.com/rently/rent-service/internal/store"
)

type deliveryUpdaterStub struct {
	statuses map[string]string // current delivery status by external id
	updates  map[string]string
	missing  bool
}

func (s *deliveryUpdaterStub) FindNotificationByExternalID(ctx context.Context, externalID string) (*domain.NotificationRecord, error) {
	if s.missing {
		return nil, store.ErrNotificationNotFound
	}
	status := s.statuses[externalID]
	if status == "" {
		status = domain.DeliverySent
	}
	return &domain.NotificationRecord{ExternalID: &externalID, DeliveryStatus: status}, nil
}

func (s *deliveryUpdaterStub) UpdateDeliveryStatusByExternalID(ctx context.Context, externalID, status string) (*domain.NotificationRecord, error) {
	if s.updates == nil {
		s.updates = make(map[string]string)
	}
	s.updates[externalID] = status
	return &domain.NotificationRecord{ExternalID: &externalID, DeliveryStatus: status}, nil
}

const statusCallbackBody = `{
  "entry": [{
    "changes": [{
      "value": {
        "statuses": [
          {"id": "wamid.A1", "status": "delivered"},
          {"id": "wamid.B2", "status": "read"},
          {"id": "wamid.C3", "status": "failed"}
        ]
      }
    }]
  }]
}`

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhook_AppliesDeliveryStatuses(t *testing.T) {
	updater := &deliveryUpdaterStub{}
	handler := NewWebhookHandler(updater, "secret", "verify-token")

	body := []byte(statusCallbackBody)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign("secret", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if updater.updates["wamid.A1"] != domain.DeliveryDelivered {
		t.Errorf("expected delivered for wamid.A1, got %q", updater.updates["wamid.A1"])
	}
	if updater.updates["wamid.B2"] != domain.DeliveryRead {
		t.Errorf("expected read for wamid.B2, got %q", updater.updates["wamid.B2"])
	}
	if updater.updates["wamid.C3"] != domain.DeliveryFailed {
		t.Errorf("expected failed for wamid.C3, got %q", updater.updates["wamid.C3"])
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	handler := NewWebhookHandler(&deliveryUpdaterStub{}, "secret", "verify-token")

	body := []byte(statusCallbackBody)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhook_IgnoresStaleCallback(t *testing.T) {
	// A retried delivered callback must not downgrade a record already
	// marked read.
	updater := &deliveryUpdaterStub{statuses: map[string]string{"wamid.A1": domain.DeliveryRead}}
	handler := NewWebhookHandler(updater, "", "verify-token")

	body := []byte(`{"entry": [{"changes": [{"value": {"statuses": [{"id": "wamid.A1", "status": "delivered"}]}}]}]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, ok := updater.updates["wamid.A1"]; ok {
		t.Errorf("expected stale delivered callback to be skipped, got update to %q", updater.updates["wamid.A1"])
	}
}

func TestWebhook_IgnoresUnknownMessageIDs(t *testing.T) {
	handler := NewWebhookHandler(&deliveryUpdaterStub{missing: true}, "", "verify-token")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewReader([]byte(statusCallbackBody)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown ids, got %d", rec.Code)
	}
}

func TestWebhook_VerifyChallenge(t *testing.T) {
	handler := NewWebhookHandler(&deliveryUpdaterStub{}, "secret", "verify-token")

	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-token&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "12345" {
		t.Errorf("expected challenge echo, got %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	handler.Verify(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong token, got %d", rec.Code)
	}
}
