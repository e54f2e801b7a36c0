package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenancy/internal/config"
	"github.com/gosuda/tenancy/internal/customer"
	"github.com/gosuda/tenancy/internal/store/postgres"
	redisstore "github.com/gosuda/tenancy/internal/store/redis"
	"github.com/gosuda/tenancy/internal/tenant"
)

// app holds the subsystems every data command needs. Built by bootstrap,
// torn down by Close.
type app struct {
	cfg      *config.Config
	store    *postgres.Store
	redis    *redisstore.Client
	tenants  *redisstore.TenantCache
	events   *redisstore.Events
	resolver tenant.Resolver
	service  *customer.Service
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	initLogging(cfg.Log)

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}
	// TenantMaxConns <= MaxConns is enforced by config validation.

	store, err := postgres.New(ctx, postgres.Options{
		DSN:            cfg.Database.DSN(),
		MaxConns:       int32(cfg.Database.MaxConns),       //nolint:gosec // bounds checked above
		TenantMaxConns: int32(cfg.Database.TenantMaxConns), //nolint:gosec // bounds checked above
		ConnectRetries: cfg.Database.ConnectRetries,
		RetryInterval:  cfg.Database.RetryInterval,
		Mode:           cfg.Tenancy.Mode,
		SchemaPrefix:   cfg.Tenancy.SchemaPrefix,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store}

	// The cache and events are optional; nil interfaces keep the service
	// working straight against the database.
	var (
		cache     customer.Cache
		publisher customer.Publisher
	)
	if cfg.Redis.Enabled() {
		a.redis, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.tenants = redisstore.NewTenantCache(a.redis, cfg.Redis.CacheTTL)
		a.events = redisstore.NewEvents(a.redis)
		cache = redisstore.NewCustomerCache(a.redis, cfg.Redis.CacheTTL)
		publisher = a.events
	}

	a.resolver = newResolver(cfg, store, a.tenants)
	a.service = customer.NewService(store.Customers(), store.Audit(), cache, publisher)

	zerolog.Ctx(ctx).Debug().
		Str("mode", string(cfg.Tenancy.Mode)).
		Bool("redis", cfg.Redis.Enabled()).
		Msg("bootstrap complete")

	return a, nil
}

// newResolver builds the tenant resolver for the configured mode. Schema
// mode accepts the configured tenants and anything in the catalog.
func newResolver(cfg *config.Config, store *postgres.Store, cache *redisstore.TenantCache) tenant.Resolver {
	if cfg.Tenancy.Mode == tenant.ModePartition {
		return tenant.PartitionResolver{}
	}

	var tc tenant.Cache
	if cache != nil {
		tc = cache
	}
	catalog := tenant.NewCatalogResolver(store.Tenants(), tc)

	if len(cfg.Tenancy.Tenants) == 0 {
		return catalog
	}
	return tenant.FirstOf(tenant.NewAllowList(cfg.Tenancy.Tenants...), catalog)
}

// inTenant runs fn as one unit of work bound to token.
func (a *app) inTenant(ctx context.Context, token string, fn func(ctx context.Context) error) error {
	return tenant.Run(ctx, a.resolver, token, fn)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	a.store.Close()
}

// withApp bootstraps the app, runs fn and tears the app down.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
