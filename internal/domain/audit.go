package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/tenancy/internal/tenant"
)

type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	Tenant     tenant.ID      `json:"tenant"`
	Action     string         `json:"action"`   // "create", "update", "delete"
	Resource   string         `json:"resource"` // "customer"
	ResourceID int64          `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAuditEntry stamps a new entry with an ID and the current time. The
// tenant is filled in by the repository from the active route.
func NewAuditEntry(action, resource string, resourceID int64, details map[string]any) *AuditEntry {
	if details == nil {
		details = map[string]any{}
	}
	return &AuditEntry{
		ID:         uuid.New(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
}

// AuditRepository stores audit entries for the tenant bound to ctx.
type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]*AuditEntry, error)
}
