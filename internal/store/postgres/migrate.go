package postgres

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	catalogMigrations   = "migrations/catalog"
	partitionMigrations = "migrations/partition"
	tenantMigrations    = "migrations/tenant"

	catalogVersionTable   = "tenancy_catalog_version"
	partitionVersionTable = "tenancy_partition_version"
	tenantVersionTable    = "tenancy_schema_version"
)

// goose keeps its settings in package globals.
var gooseMu sync.Mutex //nolint:gochecknoglobals // guards goose globals

// migrate applies the embedded migrations in dir through pool. The version
// table is created unqualified, so for a tenant pool it lands in the
// tenant's schema next to the tables it tracks.
func migrate(ctx context.Context, pool *pgxpool.Pool, dir, table string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	logger := zerolog.Ctx(ctx).With().Str("migrations", dir).Logger()

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("close migration connection")
		}
	}()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: logger})
	goose.SetTableName(table)

	err := goose.SetDialect("postgres")
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	err = goose.UpContext(ctx, db, dir)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
