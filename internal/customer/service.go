// Package customer implements the tenant-scoped customer operations. Every
// operation runs inside a unit of work that already has a tenant bound; the
// service never chooses a tenant itself.
package customer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/tenancy/internal/domain"
	"github.com/gosuda/tenancy/internal/tenant"
)

const resourceCustomer = "customer"

// Cache is a tenant-scoped customer cache. Generation is read before the
// database so that Set can drop a fill that an Invalidate overtook.
type Cache interface {
	Get(ctx context.Context, id int64) (*domain.Customer, bool, error)
	Generation(ctx context.Context, id int64) (int64, error)
	Set(ctx context.Context, c *domain.Customer, gen int64) error
	Invalidate(ctx context.Context, id int64) error
}

// Publisher announces committed customer changes.
type Publisher interface {
	Publish(ctx context.Context, ev domain.CustomerEvent) error
}

// Auditor records who changed what.
type Auditor interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]*domain.AuditEntry, error)
}

// Created is the result of Create: the stored customer and the location of
// the new resource.
type Created struct {
	Customer *domain.Customer `json:"customer"`
	Location string           `json:"location"`
}

// Location returns the resource path of a customer.
func Location(id int64) string {
	return "/api/customers/" + strconv.FormatInt(id, 10)
}

type Service struct {
	repo   domain.CustomerRepository
	audit  Auditor
	cache  Cache
	events Publisher
	now    func() time.Time
}

// NewService creates a Service. audit, cache and events may be nil.
func NewService(repo domain.CustomerRepository, audit Auditor, cache Cache, events Publisher) *Service {
	return &Service{
		repo:   repo,
		audit:  audit,
		cache:  cache,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, req domain.PageRequest) (*domain.Page[*domain.Customer], error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("customer.List: %w", err)
	}

	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("customer.List: %w", err)
	}

	return domain.NewPage(items, req, total), nil
}

// Count returns the number of customers of the bound tenant.
func (s *Service) Count(ctx context.Context) (int64, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return 0, fmt.Errorf("customer.Count: %w", err)
	}

	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("customer.Count: %w", err)
	}

	return n, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("customer.Get: %w", err)
	}

	fill := false
	var gen int64
	if s.cache != nil {
		c, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("customer_id", id).Msg("customer cache read failed")
		}
		if ok {
			return c, nil
		}

		gen, err = s.cache.Generation(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("customer_id", id).Msg("customer cache generation read failed")
		}
		fill = err == nil
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("customer.Get: %w", err)
	}

	if fill {
		if err := s.cache.Set(ctx, c, gen); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("customer_id", id).Msg("customer cache write failed")
		}
	}

	return c, nil
}

func (s *Service) Create(ctx context.Context, name string) (*Created, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("customer.Create: %w", err)
	}

	c, err := domain.NewCustomer(name)
	if err != nil {
		return nil, fmt.Errorf("customer.Create: %w", err)
	}

	err = s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("customer.Create: %w", err)
	}

	s.recordAudit(ctx, "create", c, map[string]any{"name": c.Name})
	s.publish(ctx, domain.EventCustomerCreated, c)

	zerolog.Ctx(ctx).Info().Int64("customer_id", c.ID).Msg("customer created")

	return &Created{Customer: c, Location: Location(c.ID)}, nil
}

// Update merges patch into the customer and stores it.
func (s *Service) Update(ctx context.Context, id int64, patch domain.CustomerPatch) (*domain.Customer, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("customer.Update: %w", err)
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("customer.Update: %w", err)
	}

	before := c.Name
	err = patch.Apply(c)
	if err != nil {
		return nil, fmt.Errorf("customer.Update: %w", err)
	}

	err = s.repo.Update(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("customer.Update: %w", err)
	}

	s.invalidate(ctx, id)
	s.recordAudit(ctx, "update", c, map[string]any{"name": c.Name, "previous_name": before})
	s.publish(ctx, domain.EventCustomerUpdated, c)

	return c, nil
}

// Delete removes the customer and returns the removed row.
func (s *Service) Delete(ctx context.Context, id int64) (*domain.Customer, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("customer.Delete: %w", err)
	}

	c, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("customer.Delete: %w", err)
	}

	s.invalidate(ctx, id)
	s.recordAudit(ctx, "delete", c, map[string]any{"name": c.Name})
	s.publish(ctx, domain.EventCustomerDeleted, c)

	zerolog.Ctx(ctx).Info().Int64("customer_id", c.ID).Msg("customer deleted")

	return c, nil
}

// History returns the bound tenant's audit entries, newest first.
func (s *Service) History(ctx context.Context, limit, offset int) ([]*domain.AuditEntry, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("customer.History: %w", err)
	}
	if s.audit == nil {
		return []*domain.AuditEntry{}, nil
	}

	entries, err := s.audit.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("customer.History: %w", err)
	}

	return entries, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("customer_id", id).Msg("customer cache invalidation failed")
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, c *domain.Customer, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := domain.NewAuditEntry(action, resourceCustomer, c.ID, details)
	if err := s.audit.Record(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("action", action).Int64("customer_id", c.ID).Msg("audit record failed")
	}
}

func (s *Service) publish(ctx context.Context, typ domain.EventType, c *domain.Customer) {
	if s.events == nil {
		return
	}
	ev := domain.CustomerEvent{Type: typ, Customer: c, At: s.now()}
	if err := s.events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", string(typ)).Msg("customer event publish failed")
	}
}
