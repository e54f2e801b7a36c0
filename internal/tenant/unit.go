package tenant

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type unitKey struct{}

// Unit is the tenant binding of a single unit of work. It is created by
// Begin, bound once by the resolver and cleared by End. Contexts derived from
// the unit observe the clear, so a context that outlives its request cannot
// keep reading data as that tenant.
type Unit struct {
	mu     sync.RWMutex
	id     ID
	bound  bool
	closed bool
}

// Begin opens a new unit of work. Callers must defer End on the returned unit.
func Begin(ctx context.Context) (context.Context, *Unit) {
	u := &Unit{}
	return context.WithValue(ctx, unitKey{}, u), u
}

// Bind sets the unit's tenant. Binding the tenant already bound is a no-op.
func (u *Unit) Bind(id ID) error {
	if id == "" {
		return ErrEmptyTenant
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrUnitClosed
	}
	if u.bound {
		if u.id == id {
			return nil
		}
		return fmt.Errorf("%w: bound to %q, got %q", ErrTenantConflict, u.id, id)
	}

	u.id = id
	u.bound = true
	return nil
}

// End clears the binding. It is safe to call more than once.
func (u *Unit) End() {
	u.mu.Lock()
	u.id = ""
	u.bound = false
	u.closed = true
	u.mu.Unlock()
}

// Tenant returns the bound tenant, if any.
func (u *Unit) Tenant() (ID, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.id, u.bound
}

// UnitFromContext returns the unit of work carried by ctx.
func UnitFromContext(ctx context.Context) (*Unit, bool) {
	u, ok := ctx.Value(unitKey{}).(*Unit)
	return u, ok && u != nil
}

// FromContext returns the tenant bound to the unit of work carried by ctx.
func FromContext(ctx context.Context) (ID, error) {
	u, ok := UnitFromContext(ctx)
	if !ok {
		return "", ErrTenantNotResolved
	}
	id, bound := u.Tenant()
	if !bound {
		return "", ErrTenantNotResolved
	}
	return id, nil
}

// Run executes fn as one unit of work bound to the tenant named by token.
// The binding is cleared when Run returns, including when fn fails or panics.
func Run(ctx context.Context, resolver Resolver, token string, fn func(ctx context.Context) error) error {
	ctx, unit := Begin(ctx)
	defer unit.End()

	id, err := resolver.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if err = unit.Bind(id); err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx).With().Str("tenant", id.String()).Logger()
	return fn(logger.WithContext(ctx))
}
