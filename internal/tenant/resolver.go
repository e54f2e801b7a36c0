package tenant

import (
	"context"
	"errors"
	"fmt"
)

// Resolver turns an inbound tenant token into a validated ID.
type Resolver interface {
	Resolve(ctx context.Context, token string) (ID, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(ctx context.Context, token string) (ID, error)

func (f ResolverFunc) Resolve(ctx context.Context, token string) (ID, error) {
	return f(ctx, token)
}

// Catalog reports whether a tenant is registered.
type Catalog interface {
	Exists(ctx context.Context, id ID) (bool, error)
}

// Cache remembers tenants already confirmed by a Catalog.
type Cache interface {
	Known(ctx context.Context, id ID) bool
	Remember(ctx context.Context, id ID)
	Forget(ctx context.Context, id ID)
}

// PartitionResolver accepts any non-empty token as a partition key.
type PartitionResolver struct{}

func (PartitionResolver) Resolve(_ context.Context, token string) (ID, error) {
	return ParseID(token)
}

// AllowList is a fixed set of known tenants for schema mode.
type AllowList struct {
	ids map[ID]struct{}
}

func NewAllowList(ids ...ID) *AllowList {
	set := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &AllowList{ids: set}
}

func (a *AllowList) Resolve(_ context.Context, token string) (ID, error) {
	id, err := ParseID(token)
	if err != nil {
		return "", err
	}
	if _, ok := a.ids[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTenant, id)
	}
	return id, nil
}

// Len returns the number of tenants in the list.
func (a *AllowList) Len() int { return len(a.ids) }

// CatalogResolver validates tokens against a tenant registry. Only positive
// answers are cached so newly registered tenants resolve immediately.
type CatalogResolver struct {
	catalog Catalog
	cache   Cache
}

// NewCatalogResolver creates a CatalogResolver. cache may be nil.
func NewCatalogResolver(catalog Catalog, cache Cache) *CatalogResolver {
	return &CatalogResolver{catalog: catalog, cache: cache}
}

func (r *CatalogResolver) Resolve(ctx context.Context, token string) (ID, error) {
	id, err := ParseID(token)
	if err != nil {
		return "", err
	}

	if r.cache != nil && r.cache.Known(ctx, id) {
		return id, nil
	}

	ok, err := r.catalog.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("tenant.CatalogResolver.Resolve: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTenant, id)
	}

	if r.cache != nil {
		r.cache.Remember(ctx, id)
	}
	return id, nil
}

// FirstOf tries resolvers in order. A resolver answering ErrUnknownTenant
// passes the token on; any other error stops the chain.
func FirstOf(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context, token string) (ID, error) {
		for _, r := range resolvers {
			id, err := r.Resolve(ctx, token)
			if err == nil {
				return id, nil
			}
			if !errors.Is(err, ErrUnknownTenant) {
				return "", err
			}
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownTenant, token)
	})
}
