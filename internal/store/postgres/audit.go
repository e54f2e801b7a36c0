package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/tenancy/internal/domain"
	"github.com/gosuda/tenancy/internal/tenant"
)

const auditTable = "audit_log"

type AuditRepo struct {
	router Router
}

func NewAuditRepo(router Router) *AuditRepo {
	return &AuditRepo{router: router}
}

// Record stores entry for the tenant bound to ctx. entry.Tenant is set from
// the route.
func (r *AuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	route, err := r.router.Route(ctx)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: %w", err)
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: marshal details: %w", err)
	}

	q, args, err := route.Insert(auditTable, map[string]any{
		"id":          entry.ID,
		"action":      entry.Action,
		"resource":    entry.Resource,
		"resource_id": entry.ResourceID,
		"details":     details,
		"created_at":  entry.CreatedAt,
	}).ToSql()
	if err != nil {
		return fmt.Errorf("auditRepo.Record: build: %w", err)
	}

	_, err = route.DB.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: %w", err)
	}
	entry.Tenant = route.Tenant

	return nil
}

func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]*domain.AuditEntry, error) {
	route, err := r.router.Route(ctx)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: %w", err)
	}
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("auditRepo.List: limit %d offset %d: %w", limit, offset, domain.ErrInvalidArgument)
	}

	q, args, err := route.Select(auditTable, "id", "action", "resource", "resource_id", "details", "created_at").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).   //nolint:gosec // checked above
		Offset(uint64(offset)). //nolint:gosec // checked above
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: build: %w", err)
	}

	rows, err := route.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows, route.Tenant, "auditRepo.List")
}

func scanAuditEntries(rows pgx.Rows, id tenant.ID, caller string) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for rows.Next() {
		e := domain.AuditEntry{Tenant: id}
		var details []byte

		if err := rows.Scan(
			&e.ID, &e.Action, &e.Resource, &e.ResourceID, &details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("%s: unmarshal details: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
