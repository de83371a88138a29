/**
 * @description
 * This file implements the data access layer for notification records. The
 * table is append-only: one row per dispatch attempt, updated in place only
 * as delivery callbacks arrive from the transport.
 */
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rently/rent-service/internal/domain"
)

// NotificationRepository handles database operations for notifications.
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, tenant_id, obligation_id, type, channel, delivery_status, external_id, sent_at, created_at, updated_at`

func scanNotification(row pgx.Row) (*domain.NotificationRecord, error) {
	var rec domain.NotificationRecord
	err := row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.ObligationID,
		&rec.Type,
		&rec.Channel,
		&rec.DeliveryStatus,
		&rec.ExternalID,
		&rec.SentAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateNotification inserts a new pending notification record.
func (r *NotificationRepository) CreateNotification(ctx context.Context, rec domain.NotificationRecord) (*domain.NotificationRecord, error) {
	query := `
        INSERT INTO notifications (id, tenant_id, obligation_id, type, channel, delivery_status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + notificationColumns + `
    `
	return scanNotification(r.db.QueryRow(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.ObligationID,
		rec.Type,
		rec.Channel,
		rec.DeliveryStatus,
	))
}

// UpdateNotificationStatus records the delivery outcome for a notification.
// SentAt is stamped the first time the record leaves pending.
func (r *NotificationRepository) UpdateNotificationStatus(ctx context.Context, id, status string, externalID *string) (*domain.NotificationRecord, error) {
	query := `
        UPDATE notifications
        SET delivery_status = $2,
            external_id = COALESCE($3, external_id),
            sent_at = COALESCE(sent_at, CASE WHEN $2 <> 'pending' THEN NOW() END),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + notificationColumns + `
    `
	rec, err := scanNotification(r.db.QueryRow(ctx, query, id, status, externalID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return rec, nil
}

// FindNotification returns the most recent notification of a given type for
// an obligation. Escalation uses this as its once-per-form guard.
func (r *NotificationRepository) FindNotification(ctx context.Context, obligationID, notificationType string) (*domain.NotificationRecord, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE obligation_id = $1 AND type = $2
        ORDER BY created_at DESC
        LIMIT 1
    `
	rec, err := scanNotification(r.db.QueryRow(ctx, query, obligationID, notificationType))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return rec, nil
}

// FindNotificationByExternalID returns the notification carrying the given
// transport message id.
func (r *NotificationRepository) FindNotificationByExternalID(ctx context.Context, externalID string) (*domain.NotificationRecord, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE external_id = $1
    `
	rec, err := scanNotification(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return rec, nil
}

// UpdateDeliveryStatusByExternalID applies a transport delivery callback to
// the notification carrying that external message id.
func (r *NotificationRepository) UpdateDeliveryStatusByExternalID(ctx context.Context, externalID, status string) (*domain.NotificationRecord, error) {
	query := `
        UPDATE notifications
        SET delivery_status = $2,
            updated_at = NOW()
        WHERE external_id = $1
        RETURNING ` + notificationColumns + `
    `
	rec, err := scanNotification(r.db.QueryRow(ctx, query, externalID, status))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return rec, nil
}
