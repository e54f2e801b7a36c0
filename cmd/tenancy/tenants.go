package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/tenancy/internal/tenant"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage the tenant catalog",
}

var tenantsAddCmd = &cobra.Command{
	Use:   "add <tenant>",
	Short: "Provision a tenant",
	Long: `Register a tenant in the catalog. In schema mode the tenant's schema is
created and migrated first. Adding an existing tenant is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runTenantsAdd,
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tenants",
	Args:  cobra.NoArgs,
	RunE:  runTenantsList,
}

var tenantsRemoveCmd = &cobra.Command{
	Use:   "remove <tenant>",
	Short: "Remove a tenant from the catalog",
	Long:  `Remove a tenant from the catalog. Its data is kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantsRemove,
}

func init() {
	tenantsCmd.AddCommand(tenantsAddCmd, tenantsListCmd, tenantsRemoveCmd)
}

func runTenantsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := tenant.ParseID(args[0])
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		t, err := a.store.Provision(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), t)
	})
}

func runTenantsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		tenants, err := a.store.Tenants().List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TENANT\tSCHEMA\tCREATED")
		for _, t := range tenants {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Schema, t.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	})
}

func runTenantsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := tenant.ParseID(args[0])
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		if err := a.store.Deprovision(ctx, id); err != nil {
			return err
		}
		if a.tenants != nil {
			a.tenants.Forget(ctx, id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
		return nil
	})
}
