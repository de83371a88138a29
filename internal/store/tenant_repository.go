/**
 * @description
 * This file implements the data access layer for tenant contact details.
 */
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rently/rent-service/internal/domain"
)

// TenantRepository handles database operations for tenants.
type TenantRepository struct {
	db *pgxpool.Pool
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetTenant retrieves a tenant's contact details by id.
func (r *TenantRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	query := `
        SELECT id, full_name, phone, email, created_at
        FROM tenants
        WHERE id = $1
    `
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.FullName,
		&tenant.Phone,
		&tenant.Email,
		&tenant.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}
