package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/tenancy/internal/domain"
)

const customersTable = "customers"

type CustomerRepo struct {
	router Router
}

func NewCustomerRepo(router Router) *CustomerRepo {
	return &CustomerRepo{router: router}
}

// txBeginner is implemented by pools and connections. A route whose DB is
// already a transaction reads through it as is.
type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// List returns one page and the total count. Both queries read the same
// snapshot, so the total always agrees with the rows.
func (r *CustomerRepo) List(ctx context.Context, req domain.PageRequest) ([]*domain.Customer, int64, error) {
	route, err := r.router.Route(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("customerRepo.List: %w", err)
	}

	if b, ok := route.DB.(txBeginner); ok {
		tx, err := b.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
		if err != nil {
			return nil, 0, fmt.Errorf("customerRepo.List: begin: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		route = &Route{Tenant: route.Tenant, Mode: route.Mode, DB: tx}
	}

	customers, total, err := listPage(ctx, route, req)
	if err != nil {
		return nil, 0, fmt.Errorf("customerRepo.List: %w", err)
	}

	return customers, total, nil
}

func listPage(ctx context.Context, route *Route, req domain.PageRequest) ([]*domain.Customer, int64, error) {
	total, err := countRows(ctx, route, customersTable)
	if err != nil {
		return nil, 0, err
	}

	q, args, err := route.Select(customersTable, "id", "name").
		OrderBy(orderBy(req)...).
		Limit(uint64(req.Size)).      //nolint:gosec // size validated by NewPageRequest
		Offset(uint64(req.Offset())). //nolint:gosec // page validated by NewPageRequest
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build: %w", err)
	}

	rows, err := route.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		c := domain.Customer{Tenant: route.Tenant}

		err = rows.Scan(&c.ID, &c.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}

		customers = append(customers, &c)
	}
	err = rows.Err()
	if err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	return customers, total, nil
}

func (r *CustomerRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	route, err := r.router.Route(ctx)
	if err != nil {
		return nil, fmt.Errorf("customerRepo.GetByID: %w", err)
	}

	q, args, err := route.Select(customersTable, "id", "name").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("customerRepo.GetByID: build: %w", err)
	}

	c := domain.Customer{Tenant: route.Tenant}
	err = route.DB.QueryRow(ctx, q, args...).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customerRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("customerRepo.GetByID: %w", err)
	}

	return &c, nil
}

// Create inserts c and fills in its ID and tenant.
func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	route, err := r.router.Route(ctx)
	if err != nil {
		return fmt.Errorf("customerRepo.Create: %w", err)
	}

	q, args, err := route.Insert(customersTable, map[string]any{"name": c.Name}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("customerRepo.Create: build: %w", err)
	}

	err = route.DB.QueryRow(ctx, q, args...).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("customerRepo.Create: %w", err)
	}
	c.Tenant = route.Tenant

	return nil
}

func (r *CustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	route, err := r.router.Route(ctx)
	if err != nil {
		return fmt.Errorf("customerRepo.Update: %w", err)
	}

	q, args, err := route.Update(customersTable).
		Set("name", c.Name).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("customerRepo.Update: build: %w", err)
	}

	tag, err := route.DB.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("customerRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customerRepo.Update: %w", domain.ErrNotFound)
	}
	c.Tenant = route.Tenant

	return nil
}

// Delete removes the customer and returns the removed row.
func (r *CustomerRepo) Delete(ctx context.Context, id int64) (*domain.Customer, error) {
	route, err := r.router.Route(ctx)
	if err != nil {
		return nil, fmt.Errorf("customerRepo.Delete: %w", err)
	}

	q, args, err := route.Delete(customersTable).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("customerRepo.Delete: build: %w", err)
	}

	c := domain.Customer{Tenant: route.Tenant}
	err = route.DB.QueryRow(ctx, q, args...).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customerRepo.Delete: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("customerRepo.Delete: %w", err)
	}

	return &c, nil
}

func (r *CustomerRepo) Count(ctx context.Context) (int64, error) {
	route, err := r.router.Route(ctx)
	if err != nil {
		return 0, fmt.Errorf("customerRepo.Count: %w", err)
	}

	n, err := countRows(ctx, route, customersTable)
	if err != nil {
		return 0, fmt.Errorf("customerRepo.Count: %w", err)
	}

	return n, nil
}

func countRows(ctx context.Context, route *Route, table string) (int64, error) {
	q, args, err := route.Count(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	err = route.DB.QueryRow(ctx, q, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	return n, nil
}

// orderBy renders the ORDER BY terms for req. The sort column is checked
// against domain.CustomerSortFields before it reaches SQL; id is appended as
// a tiebreaker so pages are stable.
func orderBy(req domain.PageRequest) []string {
	col := req.SortBy
	if _, ok := domain.CustomerSortFields[col]; !ok {
		col = domain.DefaultSortBy
	}
	dir := "ASC"
	if req.SortDir == domain.Descending {
		dir = "DESC"
	}

	terms := []string{col + " " + dir}
	if col != "id" {
		terms = append(terms, "id "+dir)
	}
	return terms
}
