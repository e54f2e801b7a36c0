package postgres

import (
	"context"
	"maps"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gosuda/tenancy/internal/tenant"
)

// DiscriminatorColumn holds the owning tenant on shared tables in partition
// mode.
const DiscriminatorColumn = "tenant"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar) //nolint:gochecknoglobals // immutable builder

// Querier is the subset of pgx used by the repositories. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Router picks the tenant-scoped data source for the unit of work bound to
// ctx.
type Router interface {
	Route(ctx context.Context) (*Route, error)
	Close()
}

// Route is the outcome of routing one data operation. Statements built from
// a Route are already scoped to its tenant: in partition mode every builder
// carries the discriminator predicate, in schema mode DB is a connection
// whose search_path only reaches the tenant's schema.
type Route struct {
	Tenant tenant.ID
	Mode   tenant.Mode
	DB     Querier
}

func (r *Route) partitioned() bool {
	return r.Mode == tenant.ModePartition
}

func (r *Route) scope() sq.Eq {
	return sq.Eq{DiscriminatorColumn: string(r.Tenant)}
}

// Select starts a SELECT over table.
func (r *Route) Select(table string, columns ...string) sq.SelectBuilder {
	b := psql.Select(columns...).From(table)
	if r.partitioned() {
		b = b.Where(r.scope())
	}
	return b
}

// Count starts a SELECT count(*) over table.
func (r *Route) Count(table string) sq.SelectBuilder {
	return r.Select(table, "count(*)")
}

// Insert starts an INSERT of values into table. In partition mode the
// discriminator is always taken from the route, whatever values says.
func (r *Route) Insert(table string, values map[string]any) sq.InsertBuilder {
	row := make(map[string]any, len(values)+1)
	maps.Copy(row, values)
	if r.partitioned() {
		row[DiscriminatorColumn] = string(r.Tenant)
	}
	return psql.Insert(table).SetMap(row)
}

// Update starts an UPDATE of table.
func (r *Route) Update(table string) sq.UpdateBuilder {
	b := psql.Update(table)
	if r.partitioned() {
		b = b.Where(r.scope())
	}
	return b
}

// Delete starts a DELETE from table.
func (r *Route) Delete(table string) sq.DeleteBuilder {
	b := psql.Delete(table)
	if r.partitioned() {
		b = b.Where(r.scope())
	}
	return b
}
