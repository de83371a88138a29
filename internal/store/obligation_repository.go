/**
 * @description
 * This file implements the data access layer for rent obligations. The
 * obligations table carries a unique constraint on (tenant_id, unit_id,
 * due_date); inserts rely on the constraint rather than a prior existence
 * check, which closes the race between check and insert and makes the daily
 * generation job idempotent.
 */
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rently/rent-service/internal/domain"
)

// ObligationRepository handles database operations for rent obligations.
type ObligationRepository struct {
	db *pgxpool.Pool
}

// NewObligationRepository creates a new obligation repository.
func NewObligationRepository(db *pgxpool.Pool) *ObligationRepository {
	return &ObligationRepository{db: db}
}

const obligationColumns = `id, tenant_id, unit_id, amount_due, due_date, payment_date, status, payment_method, payment_request_ref, created_at, updated_at`

func scanObligation(row pgx.Row) (*domain.Obligation, error) {
	var ob domain.Obligation
	err := row.Scan(
		&ob.ID,
		&ob.TenantID,
		&ob.UnitID,
		&ob.AmountDue,
		&ob.DueDate,
		&ob.PaymentDate,
		&ob.Status,
		&ob.PaymentMethod,
		&ob.PaymentRequestRef,
		&ob.CreatedAt,
		&ob.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ob, nil
}

func collectObligations(rows pgx.Rows) ([]domain.Obligation, error) {
	defer rows.Close()
	var obligations []domain.Obligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, *ob)
	}
	return obligations, rows.Err()
}

// CreateObligation inserts a new obligation. Returns ErrDuplicateObligation
// when one already exists for the same (tenant, unit, due_date).
func (r *ObligationRepository) CreateObligation(ctx context.Context, ob domain.Obligation) (*domain.Obligation, error) {
	query := `
        INSERT INTO obligations (id, tenant_id, unit_id, amount_due, due_date, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (tenant_id, unit_id, due_date) DO NOTHING
        RETURNING ` + obligationColumns + `
    `
	created, err := scanObligation(r.db.QueryRow(ctx, query,
		ob.ID,
		ob.TenantID,
		ob.UnitID,
		ob.AmountDue,
		ob.DueDate,
		ob.Status,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDuplicateObligation
		}
		return nil, err
	}
	return created, nil
}

// GetObligation retrieves an obligation by id.
func (r *ObligationRepository) GetObligation(ctx context.Context, id string) (*domain.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE id = $1`
	ob, err := scanObligation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrObligationNotFound
		}
		return nil, err
	}
	return ob, nil
}

// MarkObligationsLate transitions every pending obligation past its due date
// to late in a single statement and returns the transitioned rows.
func (r *ObligationRepository) MarkObligationsLate(ctx context.Context, asOf time.Time) ([]domain.Obligation, error) {
	query := `
        UPDATE obligations
        SET status = 'late',
            updated_at = NOW()
        WHERE status = 'pending'
          AND due_date < $1
        RETURNING ` + obligationColumns + `
    `
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	return collectObligations(rows)
}

// ListOpenObligations returns obligations still awaiting full payment.
func (r *ObligationRepository) ListOpenObligations(ctx context.Context, asOf time.Time) ([]domain.Obligation, error) {
	query := `
        SELECT ` + obligationColumns + `
        FROM obligations
        WHERE status IN ('pending', 'late')
          AND due_date <= $1
        ORDER BY due_date
    `
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	return collectObligations(rows)
}

// ListLateObligations returns all obligations currently in the late state.
func (r *ObligationRepository) ListLateObligations(ctx context.Context) ([]domain.Obligation, error) {
	query := `
        SELECT ` + obligationColumns + `
        FROM obligations
        WHERE status = 'late'
        ORDER BY due_date
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectObligations(rows)
}

// ListObligationsByTenant returns a tenant's billing history, newest first.
func (r *ObligationRepository) ListObligationsByTenant(ctx context.Context, tenantID string, limit int) ([]domain.Obligation, error) {
	query := `
        SELECT ` + obligationColumns + `
        FROM obligations
        WHERE tenant_id = $1
        ORDER BY due_date DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return collectObligations(rows)
}

// RecordPayment stores the terminal payment state for an obligation. The
// status predicate closes the race between the caller's read and this
// update: of two concurrent payments only the first finds an open row, the
// second gets ErrObligationClosed.
func (r *ObligationRepository) RecordPayment(ctx context.Context, id, status string, paymentDate time.Time, method string) (*domain.Obligation, error) {
	query := `
        UPDATE obligations
        SET status = $2,
            payment_date = $3,
            payment_method = $4,
            updated_at = NOW()
        WHERE id = $1
          AND status IN ('pending', 'late')
        RETURNING ` + obligationColumns + `
    `
	ob, err := scanObligation(r.db.QueryRow(ctx, query, id, status, paymentDate, method))
	if err != nil {
		if err == pgx.ErrNoRows {
			// Zero rows is either a missing obligation or one already
			// settled; re-fetch to tell the two apart.
			if _, getErr := r.GetObligation(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrObligationClosed
		}
		return nil, err
	}
	return ob, nil
}

// SetPaymentRequestRef attaches the external payment request link reference.
func (r *ObligationRepository) SetPaymentRequestRef(ctx context.Context, id, ref string) error {
	query := `
        UPDATE obligations
        SET payment_request_ref = $2,
            updated_at = NOW()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id, ref)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrObligationNotFound
	}
	return nil
}
