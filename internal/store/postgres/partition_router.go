package postgres

import (
	"context"
	"fmt"

	"github.com/gosuda/tenancy/internal/tenant"
)

// PartitionRouter routes every tenant to one shared database. Isolation is
// enforced by the discriminator predicate the Route builders add.
type PartitionRouter struct {
	db Querier
}

func NewPartitionRouter(db Querier) *PartitionRouter {
	return &PartitionRouter{db: db}
}

func (r *PartitionRouter) Route(ctx context.Context) (*Route, error) {
	id, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("partitionRouter.Route: %w", err)
	}

	return &Route{Tenant: id, Mode: tenant.ModePartition, DB: r.db}, nil
}

// Close is a no-op; the shared pool belongs to the Store.
func (r *PartitionRouter) Close() {}
