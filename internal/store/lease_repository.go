/**
 * @description
 * This file implements the data access layer for leases. It contains all the
 * SQL queries for reading and writing the tenant-unit rent terms that drive
 * obligation generation.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rently/rent-service/internal/domain"
)

var (
	ErrLeaseNotFound        = errors.New("lease not found")
	ErrObligationNotFound   = errors.New("obligation not found")
	ErrObligationClosed     = errors.New("obligation is already settled")
	ErrDuplicateObligation  = errors.New("obligation already exists for due date")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrTenantNotFound       = errors.New("tenant not found")
)

// LeaseRepository handles database operations for leases.
type LeaseRepository struct {
	db *pgxpool.Pool
}

// NewLeaseRepository creates a new lease repository.
func NewLeaseRepository(db *pgxpool.Pool) *LeaseRepository {
	return &LeaseRepository{db: db}
}

const leaseColumns = `id, tenant_id, unit_id, rent_amount, rent_due_day, start_date, end_date, is_primary, created_at, updated_at`

func scanLease(row pgx.Row) (*domain.Lease, error) {
	var lease domain.Lease
	err := row.Scan(
		&lease.ID,
		&lease.TenantID,
		&lease.UnitID,
		&lease.RentAmount,
		&lease.RentDueDay,
		&lease.StartDate,
		&lease.EndDate,
		&lease.IsPrimary,
		&lease.CreatedAt,
		&lease.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// ListActiveLeases returns every lease whose window covers the given date.
func (r *LeaseRepository) ListActiveLeases(ctx context.Context, asOf time.Time) ([]domain.Lease, error) {
	query := `
        SELECT ` + leaseColumns + `
        FROM leases
        WHERE start_date <= $1
          AND (end_date IS NULL OR end_date >= $1)
        ORDER BY created_at
    `
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []domain.Lease
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *lease)
	}
	return leases, rows.Err()
}

// GetLease retrieves the lease for a tenant-unit pair.
func (r *LeaseRepository) GetLease(ctx context.Context, tenantID, unitID string) (*domain.Lease, error) {
	query := `
        SELECT ` + leaseColumns + `
        FROM leases
        WHERE tenant_id = $1 AND unit_id = $2
        ORDER BY start_date DESC
        LIMIT 1
    `
	lease, err := scanLease(r.db.QueryRow(ctx, query, tenantID, unitID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}
	return lease, nil
}

// CreateLease inserts a new lease. A tenant may hold several leases but at
// most one marked primary; the partial unique index enforces that.
func (r *LeaseRepository) CreateLease(ctx context.Context, lease domain.Lease) (*domain.Lease, error) {
	query := `
        INSERT INTO leases (id, tenant_id, unit_id, rent_amount, rent_due_day, start_date, end_date, is_primary)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + leaseColumns + `
    `
	return scanLease(r.db.QueryRow(ctx, query,
		lease.ID,
		lease.TenantID,
		lease.UnitID,
		lease.RentAmount,
		lease.RentDueDay,
		lease.StartDate,
		lease.EndDate,
		lease.IsPrimary,
	))
}

// UpdateLeaseTerms changes the rent amount and due day on an existing lease,
// e.g. at renewal. Already-created obligations keep their snapshot amounts.
func (r *LeaseRepository) UpdateLeaseTerms(ctx context.Context, leaseID string, rentAmount int64, rentDueDay int) (*domain.Lease, error) {
	query := `
        UPDATE leases
        SET rent_amount = $2,
            rent_due_day = $3,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + leaseColumns + `
    `
	lease, err := scanLease(r.db.QueryRow(ctx, query, leaseID, rentAmount, rentDueDay))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}
	return lease, nil
}
