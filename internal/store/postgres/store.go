package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gosuda/tenancy/internal/domain"
	"github.com/gosuda/tenancy/internal/tenant"
)

// Options configures New.
type Options struct {
	DSN            string
	MaxConns       int32
	TenantMaxConns int32
	ConnectRetries int
	RetryInterval  time.Duration
	Mode           tenant.Mode
	SchemaPrefix   string
}

var (
	_ domain.TenantRepository   = (*TenantRepo)(nil)
	_ domain.CustomerRepository = (*CustomerRepo)(nil)
	_ domain.AuditRepository    = (*AuditRepo)(nil)
)

type Store struct {
	pool    *pgxpool.Pool
	mode    tenant.Mode
	router  Router
	schemas *SchemaRouter

	tenants   *TenantRepo
	customers *CustomerRepo
	audit     *AuditRepo
}

// New connects to the shared database and builds the router for opts.Mode.
func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	var schemas *SchemaRouter
	switch opts.Mode {
	case tenant.ModeSchema:
		schemas = NewSchemaRouter(tenantPoolConfig(cfg, opts.TenantMaxConns), opts.SchemaPrefix)
	case tenant.ModePartition:
	default:
		return nil, fmt.Errorf("postgres.New: unknown mode %q", opts.Mode)
	}

	pool, err := connect(ctx, cfg, opts.ConnectRetries, opts.RetryInterval)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: %w", err)
	}

	var router Router = NewPartitionRouter(pool)
	if schemas != nil {
		router = schemas
	}

	return &Store{
		pool:      pool,
		mode:      opts.Mode,
		router:    router,
		schemas:   schemas,
		tenants:   NewTenantRepo(pool),
		customers: NewCustomerRepo(router),
		audit:     NewAuditRepo(router),
	}, nil
}

// defaultTenantMaxConns caps each tenant pool when Options leaves it unset.
const defaultTenantMaxConns = 4

// tenantPoolConfig derives the config of per-tenant pools from the shared
// one. Every schema-mode tenant opens its own pool, so each is capped at
// maxConns and never above the shared pool size.
func tenantPoolConfig(shared *pgxpool.Config, maxConns int32) *pgxpool.Config {
	if maxConns <= 0 {
		maxConns = defaultTenantMaxConns
	}

	cfg := shared.Copy()
	cfg.MaxConns = min(cfg.MaxConns, maxConns)
	cfg.MinConns = min(cfg.MinConns, cfg.MaxConns)
	return cfg
}

// connect opens the pool, retrying with a linearly growing pause.
func connect(ctx context.Context, cfg *pgxpool.Config, attempts int, interval time.Duration) (*pgxpool.Pool, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := range attempts {
		if i > 0 {
			zerolog.Ctx(ctx).Warn().Err(lastErr).Int("attempt", i+1).Msg("retrying database connection")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("connect: %w", ctx.Err())
			case <-time.After(time.Duration(i) * interval):
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			lastErr = err
			continue
		}

		err = pool.Ping(ctx)
		if err != nil {
			pool.Close()
			lastErr = err
			continue
		}

		return pool, nil
	}

	return nil, fmt.Errorf("connect: %d attempts: %w", attempts, lastErr)
}

func (s *Store) Close() {
	s.router.Close()
	s.pool.Close()
}

func (s *Store) Mode() tenant.Mode                    { return s.mode }
func (s *Store) Router() Router                       { return s.router }
func (s *Store) Tenants() domain.TenantRepository     { return s.tenants }
func (s *Store) Customers() domain.CustomerRepository { return s.customers }
func (s *Store) Audit() domain.AuditRepository        { return s.audit }

// Migrate brings the shared schema up to date. In schema mode it also
// upgrades every tenant schema registered in the catalog.
func (s *Store) Migrate(ctx context.Context) error {
	err := migrate(ctx, s.pool, catalogMigrations, catalogVersionTable)
	if err != nil {
		return fmt.Errorf("store.Migrate: %w", err)
	}

	if s.mode == tenant.ModePartition {
		err = migrate(ctx, s.pool, partitionMigrations, partitionVersionTable)
		if err != nil {
			return fmt.Errorf("store.Migrate: %w", err)
		}
		return nil
	}

	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return fmt.Errorf("store.Migrate: %w", err)
	}
	for _, t := range tenants {
		err = s.migrateSchema(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("store.Migrate: %w", err)
		}
	}

	return nil
}

// Provision registers a tenant. In schema mode it first creates the tenant's
// schema and applies the tenant migrations inside it. Provisioning an
// existing tenant is a no-op that returns the catalog entry.
func (s *Store) Provision(ctx context.Context, id tenant.ID) (*domain.Tenant, error) {
	schema := "public"

	if s.mode == tenant.ModeSchema {
		if !tenant.ValidSchemaID(id) {
			return nil, fmt.Errorf("store.Provision: %q: %w", id, domain.ErrInvalidArgument)
		}
		schema = s.schemas.Schema(id)

		_, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize())
		if err != nil {
			return nil, fmt.Errorf("store.Provision: create schema: %w", err)
		}

		err = s.migrateSchema(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("store.Provision: %w", err)
		}
	}

	t := &domain.Tenant{ID: id, Schema: schema, CreatedAt: time.Now().UTC()}

	err := s.tenants.Create(ctx, t)
	if errors.Is(err, domain.ErrConflict) {
		existing, getErr := s.tenants.GetByID(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("store.Provision: %w", getErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.Provision: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("tenant", id.String()).Str("schema", schema).Msg("tenant provisioned")

	return t, nil
}

// Deprovision removes the tenant from the catalog and closes its pool. Tenant
// data is kept.
func (s *Store) Deprovision(ctx context.Context, id tenant.ID) error {
	err := s.tenants.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("store.Deprovision: %w", err)
	}

	if s.schemas != nil {
		s.schemas.Evict(id)
	}

	return nil
}

func (s *Store) migrateSchema(ctx context.Context, id tenant.ID) error {
	pool, err := s.schemas.Pool(ctx, id)
	if err != nil {
		return err
	}

	return migrate(ctx, pool, tenantMigrations, tenantVersionTable)
}
