package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gosuda/tenancy/internal/tenant"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded migrations for the configured mode.

In schema mode every tenant schema registered in the catalog is upgraded and
each tenant listed in TENANCY_TENANTS is provisioned if it does not exist yet.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}

		if a.cfg.Tenancy.Mode == tenant.ModeSchema {
			for _, id := range a.cfg.Tenancy.Tenants {
				if _, err := a.store.Provision(ctx, id); err != nil {
					return err
				}
			}
		}

		zerolog.Ctx(ctx).Info().Str("mode", string(a.cfg.Tenancy.Mode)).Msg("migrations applied")
		return nil
	})
}
