package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/tenancy/internal/domain"
	"github.com/gosuda/tenancy/internal/tenant"
)

// TenantRepo is the tenant catalog. It lives in the shared database and is
// never routed.
type TenantRepo struct {
	db Querier
}

func NewTenantRepo(db Querier) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, schema_name, created_at)
		 VALUES ($1, $2, $3)`,
		t.ID, t.Schema, t.CreatedAt,
	)
	if isDuplicateKey(err) {
		return fmt.Errorf("tenantRepo.Create: %q: %w", t.ID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tenantRepo.Create: %w", err)
	}

	return nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id tenant.ID) (*domain.Tenant, error) {
	var t domain.Tenant

	err := r.db.QueryRow(ctx,
		`SELECT id, schema_name, created_at
		 FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Schema, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", err)
	}

	return &t, nil
}

func (r *TenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, schema_name, created_at
		 FROM tenants ORDER BY id
		 LIMIT 500`,
	)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant

		err = rows.Scan(&t.ID, &t.Schema, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("tenantRepo.List: scan: %w", err)
		}

		tenants = append(tenants, &t)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: rows: %w", err)
	}

	return tenants, nil
}

// Delete removes the catalog entry. The tenant's schema is left in place.
func (r *TenantRepo) Delete(ctx context.Context, id tenant.ID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tenantRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenantRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

// Exists implements tenant.Catalog.
func (r *TenantRepo) Exists(ctx context.Context, id tenant.ID) (bool, error) {
	var ok bool

	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`,
		id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("tenantRepo.Exists: %w", err)
	}

	return ok, nil
}
