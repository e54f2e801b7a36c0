package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gosuda/tenancy/internal/domain"
	"github.com/gosuda/tenancy/internal/tenant"
)

// CustomerCache is a read-through cache of customers for the tenant bound to
// the caller's unit of work.
//
// Every entry has a generation counter that Invalidate bumps. A reader takes
// the generation before it queries the database and passes it to Set, which
// drops the fill if a write happened in between. Without that a read racing
// a delete could put the deleted row back after it was invalidated.
type CustomerCache struct {
	client *Client
	ttl    time.Duration
}

func NewCustomerCache(client *Client, ttl time.Duration) *CustomerCache {
	return &CustomerCache{client: client, ttl: ttl}
}

// Get returns the cached customer. ok is false on a miss.
func (c *CustomerCache) Get(ctx context.Context, id int64) (*domain.Customer, bool, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("customerCache.Get: %w", err)
	}

	raw, err := c.client.client.Get(ctx, CustomerKey(t, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("customerCache.Get: %w", err)
	}

	var cust domain.Customer
	if err := json.Unmarshal(raw, &cust); err != nil {
		return nil, false, fmt.Errorf("customerCache.Get: decode: %w", err)
	}
	if cust.Tenant != t {
		return nil, false, nil
	}

	return &cust, true, nil
}

// Generation returns the current write generation of the customer's entry.
func (c *CustomerCache) Generation(ctx context.Context, id int64) (int64, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("customerCache.Generation: %w", err)
	}

	gen, err := readGeneration(ctx, c.client.client, CustomerGenerationKey(t, id))
	if err != nil {
		return 0, fmt.Errorf("customerCache.Generation: %w", err)
	}
	return gen, nil
}

// Set stores cust unless its entry was invalidated after gen was read. A
// dropped fill is not an error.
func (c *CustomerCache) Set(ctx context.Context, cust *domain.Customer, gen int64) error {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("customerCache.Set: %w", err)
	}
	if cust.Tenant != t {
		return fmt.Errorf("customerCache.Set: customer of %q in unit of %q: %w", cust.Tenant, t, tenant.ErrTenantConflict)
	}

	raw, err := json.Marshal(cust)
	if err != nil {
		return fmt.Errorf("customerCache.Set: encode: %w", err)
	}

	genKey := CustomerGenerationKey(t, cust.ID)
	err = c.client.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CustomerKey(t, cust.ID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		zerolog.Ctx(ctx).Debug().Int64("customer_id", cust.ID).Msg("stale cache fill dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("customerCache.Set: %w", err)
	}
	return nil
}

// Invalidate removes the entry and bumps its generation so in-flight fills
// are dropped.
func (c *CustomerCache) Invalidate(ctx context.Context, id int64) error {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("customerCache.Invalidate: %w", err)
	}

	genKey := CustomerGenerationKey(t, id)
	_, err = c.client.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		if c.ttl > 0 {
			pipe.Expire(ctx, genKey, 2*c.ttl)
		}
		pipe.Del(ctx, CustomerKey(t, id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("customerCache.Invalidate: %w", err)
	}
	return nil
}

var errStaleFill = errors.New("stale cache fill")

// getter is the part of *redis.Client and *redis.Tx readGeneration needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// TenantCache remembers tenants confirmed by the catalog. It implements
// tenant.Cache; Redis failures count as misses.
type TenantCache struct {
	client *Client
	ttl    time.Duration
}

func NewTenantCache(client *Client, ttl time.Duration) *TenantCache {
	return &TenantCache{client: client, ttl: ttl}
}

func (c *TenantCache) Known(ctx context.Context, id tenant.ID) bool {
	n, err := c.client.client.Exists(ctx, KnownTenantKey(id)).Result()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("tenant", id.String()).Msg("tenant cache lookup failed")
		return false
	}
	return n > 0
}

func (c *TenantCache) Remember(ctx context.Context, id tenant.ID) {
	if err := c.client.client.Set(ctx, KnownTenantKey(id), 1, c.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("tenant", id.String()).Msg("tenant cache write failed")
	}
}

func (c *TenantCache) Forget(ctx context.Context, id tenant.ID) {
	if err := c.client.client.Del(ctx, KnownTenantKey(id)).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("tenant", id.String()).Msg("tenant cache delete failed")
	}
}
