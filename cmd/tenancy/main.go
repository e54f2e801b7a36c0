// Command tenancy manages tenants and their customers in a multi-tenant
// PostgreSQL database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/tenancy/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tenancy",
	Short: "Multi-tenant customer store with schema or partition isolation.",
	Long: `tenancy routes every data operation to the tenant bound to it.

In schema mode each tenant owns a PostgreSQL schema; in partition mode all
tenants share tables and rows are tagged with a tenant column. The mode is
selected with TENANCY_MODE.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		initLogging(config.LogConfig{Level: "info", Format: "json"})
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, tenantsCmd, customersCmd, auditCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

// initLogging installs the global logger. It runs with defaults before any
// command and again with the loaded configuration in bootstrap.
func initLogging(cfg config.LogConfig) {
	logger, level := newLogger(cfg, os.Stderr)
	zerolog.SetGlobalLevel(level)
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
}

// newLogger builds a logger writing to w. Logs go to stderr in the CLI so
// command output on stdout stays machine readable.
func newLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, zerolog.Level) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "text" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), level
}
