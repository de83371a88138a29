/**
 * @description
 * The notification dispatcher turns a domain event into an outbound
 * notification and tracks its delivery. It creates a pending record, hands
 * the message to the right external collaborator (WhatsApp template send for
 * plain messages, PDF render plus document send for LTB forms), then records
 * the outcome. A transport failure downgrades the record to failed; it is
 * never propagated as a batch error and there is no automatic retry.
 *
 * The dispatcher does not deduplicate: callers are responsible for not
 * dispatching twice for the same (obligation, type) pair.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rently/rent-service/internal/domain"
)

// MessageTransport sends outbound WhatsApp messages.
type MessageTransport interface {
	SendTemplate(ctx context.Context, phone, template string, params map[string]string) (string, error)
	SendDocument(ctx context.Context, phone, filename string, document []byte) (string, error)
}

// DocumentRenderer fills a form template and returns the PDF bytes.
type DocumentRenderer interface {
	Render(ctx context.Context, formType string, fields map[string]string) ([]byte, error)
}

// TenantDirectory resolves tenant contact details for delivery.
type TenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
}

// NotificationStore persists notification records and delivery outcomes.
type NotificationStore interface {
	CreateNotification(ctx context.Context, rec domain.NotificationRecord) (*domain.NotificationRecord, error)
	UpdateNotificationStatus(ctx context.Context, id, status string, externalID *string) (*domain.NotificationRecord, error)
	FindNotification(ctx context.Context, obligationID, notificationType string) (*domain.NotificationRecord, error)
}

// Dispatcher delivers notifications through the external transports.
type Dispatcher struct {
	notifications NotificationStore
	transport     MessageTransport
	renderer      DocumentRenderer
	directory     TenantDirectory
	logger        *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(notifications NotificationStore, transport MessageTransport, renderer DocumentRenderer, directory TenantDirectory, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		transport:     transport,
		renderer:      renderer,
		directory:     directory,
		logger:        logger,
	}
}

// Dispatch creates a notification record, attempts delivery, and returns the
// record with its final delivery status. The returned error is non-nil only
// for store failures; a transport failure is a recorded fact, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, obligationID *string, notificationType, channel string, params map[string]string) (*domain.NotificationRecord, error) {
	rec, err := d.notifications.CreateNotification(ctx, domain.NotificationRecord{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		ObligationID:   obligationID,
		Type:           notificationType,
		Channel:        channel,
		DeliveryStatus: domain.DeliveryPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification record: %w", err)
	}

	externalID, sendErr := d.deliver(ctx, tenantID, obligationID, notificationType, params)
	if sendErr != nil {
		d.logger.Error("notification delivery failed",
			"notification_id", rec.ID,
			"tenant_id", tenantID,
			"type", notificationType,
			"error", sendErr,
		)
		failed, err := d.notifications.UpdateNotificationStatus(ctx, rec.ID, domain.DeliveryFailed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to mark notification failed: %w", err)
		}
		return failed, nil
	}

	sent, err := d.notifications.UpdateNotificationStatus(ctx, rec.ID, domain.DeliverySent, &externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification sent: %w", err)
	}

	d.logger.Info("notification sent",
		"notification_id", sent.ID,
		"tenant_id", tenantID,
		"type", notificationType,
		"external_id", externalID,
	)
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, tenantID string, obligationID *string, notificationType string, params map[string]string) (string, error) {
	tenant, err := d.directory.GetTenant(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tenant contact: %w", err)
	}

	if !domain.IsFormType(notificationType) {
		return d.transport.SendTemplate(ctx, tenant.Phone, notificationType, params)
	}

	fields := map[string]string{
		"tenant_name": tenant.FullName,
		"date":        time.Now().UTC().Format("2006-01-02"),
	}
	for k, v := range params {
		fields[k] = v
	}

	document, err := d.renderer.Render(ctx, notificationType, fields)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", notificationType, err)
	}

	filename := notificationType + ".pdf"
	if obligationID != nil {
		filename = fmt.Sprintf("%s-%s.pdf", notificationType, *obligationID)
	}

	return d.transport.SendDocument(ctx, tenant.Phone, filename, document)
}
