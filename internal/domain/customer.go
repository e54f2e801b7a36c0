package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/tenancy/internal/tenant"
)

type Customer struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	Tenant tenant.ID `json:"tenant"`
}

// NewCustomer creates an unsaved Customer. The ID and tenant are assigned on
// insert.
func NewCustomer(name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("customer: name is required: %w", ErrInvalidArgument)
	}
	return &Customer{Name: name}, nil
}

// CustomerPatch carries the fields supplied for an update. Nil fields are left
// unchanged.
type CustomerPatch struct {
	Name *string `json:"name,omitempty"`
}

// Apply merges the patch into c.
func (p CustomerPatch) Apply(c *Customer) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("customer: name cannot be empty: %w", ErrInvalidArgument)
		}
		c.Name = name
	}
	return nil
}

// CustomerRepository persists customers for the tenant bound to ctx.
type CustomerRepository interface {
	List(ctx context.Context, req PageRequest) ([]*Customer, int64, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id int64) (*Customer, error)
	Count(ctx context.Context) (int64, error)
}

type EventType string

const (
	EventCustomerCreated EventType = "customer.created"
	EventCustomerUpdated EventType = "customer.updated"
	EventCustomerDeleted EventType = "customer.deleted"
)

// CustomerEvent is published after a customer mutation commits.
type CustomerEvent struct {
	Type     EventType `json:"type"`
	Customer *Customer `json:"customer"`
	At       time.Time `json:"at"`
}
