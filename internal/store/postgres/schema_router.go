package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gosuda/tenancy/internal/tenant"
)

// SchemaRouter gives each tenant its own connection pool whose search_path
// is pinned to the tenant's schema at connection startup. A connection is
// never reused for another tenant, so an unqualified table name always
// resolves inside the bound tenant's schema.
type SchemaRouter struct {
	base   *pgxpool.Config
	prefix string

	mu     sync.Mutex
	pools  map[tenant.ID]*pgxpool.Pool
	closed bool
}

// NewSchemaRouter creates a router deriving per-tenant pools from base. base
// is copied per tenant and never mutated.
func NewSchemaRouter(base *pgxpool.Config, prefix string) *SchemaRouter {
	return &SchemaRouter{
		base:   base,
		prefix: prefix,
		pools:  make(map[tenant.ID]*pgxpool.Pool),
	}
}

func (r *SchemaRouter) Route(ctx context.Context) (*Route, error) {
	id, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("schemaRouter.Route: %w", err)
	}

	pool, err := r.Pool(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("schemaRouter.Route: %w", err)
	}

	return &Route{Tenant: id, Mode: tenant.ModeSchema, DB: pool}, nil
}

// Schema returns the schema name for id.
func (r *SchemaRouter) Schema(id tenant.ID) string {
	return tenant.SchemaName(r.prefix, id)
}

// Pool returns the tenant's pool, creating it on first use. Pools connect
// lazily, so creating one does not touch the database.
func (r *SchemaRouter) Pool(ctx context.Context, id tenant.ID) (*pgxpool.Pool, error) {
	if !tenant.ValidSchemaID(id) {
		return nil, fmt.Errorf("%w: %q cannot name a schema", tenant.ErrUnknownTenant, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("schema pool for %q: router closed", id)
	}
	if pool, ok := r.pools[id]; ok {
		return pool, nil
	}

	cfg := r.base.Copy()
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = make(map[string]string)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = r.Schema(id)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("schema pool for %q: %w", id, err)
	}

	r.pools[id] = pool
	zerolog.Ctx(ctx).Debug().Str("tenant", id.String()).Str("schema", r.Schema(id)).Msg("opened tenant pool")

	return pool, nil
}

// Evict closes and forgets the tenant's pool, if one is open.
func (r *SchemaRouter) Evict(id tenant.ID) {
	r.mu.Lock()
	pool, ok := r.pools[id]
	delete(r.pools, id)
	r.mu.Unlock()

	if ok {
		pool.Close()
	}
}

// Open reports how many tenant pools are currently open.
func (r *SchemaRouter) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

func (r *SchemaRouter) Close() {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[tenant.ID]*pgxpool.Pool)
	r.closed = true
	r.mu.Unlock()

	for _, pool := range pools {
		pool.Close()
	}
}
