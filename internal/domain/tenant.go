package domain

import (
	"context"
	"time"

	"github.com/gosuda/tenancy/internal/tenant"
)

// Tenant is a catalog entry for a tenant provisioned in schema mode.
type Tenant struct {
	ID        tenant.ID `json:"id"`
	Schema    string    `json:"schema"`
	CreatedAt time.Time `json:"created_at"`
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id tenant.ID) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Delete(ctx context.Context, id tenant.ID) error
	Exists(ctx context.Context, id tenant.ID) (bool, error)
}
