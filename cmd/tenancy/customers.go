package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gosuda/tenancy/internal/domain"
)

var (
	customersTenant string

	listPage    int
	listSize    int
	listSortBy  string
	listSortDir string

	updateName string
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Work with the customers of one tenant",
	Long: `Every customers subcommand runs as a single unit of work bound to the
tenant given with --tenant. Data of other tenants is never visible.

Examples:
  tenancy customers create "First Customer" --tenant acme
  tenancy customers list --tenant acme --size 20 --sort name --dir desc
  tenancy customers delete 42 --tenant acme`,
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers page by page",
	Args:  cobra.NoArgs,
	RunE:  runCustomersList,
}

var customersCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the tenant's customers",
	Args:  cobra.NoArgs,
	RunE:  runCustomersCount,
}

var customersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomersGet,
}

var customersCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomersCreate,
}

var customersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomersUpdate,
}

var customersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomersDelete,
}

var customersWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream customer changes (requires TENANCY_REDIS_ADDR)",
	Args:  cobra.NoArgs,
	RunE:  runCustomersWatch,
}

func init() {
	customersCmd.PersistentFlags().StringVarP(&customersTenant, "tenant", "t", "", "tenant identifier (required)")
	_ = customersCmd.MarkPersistentFlagRequired("tenant")

	customersListCmd.Flags().IntVar(&listPage, "page", domain.DefaultPage, "zero-based page number")
	customersListCmd.Flags().IntVar(&listSize, "size", domain.DefaultSize, "page size")
	customersListCmd.Flags().StringVar(&listSortBy, "sort", domain.DefaultSortBy, "sort column (id, name)")
	customersListCmd.Flags().StringVar(&listSortDir, "dir", string(domain.DefaultSortDir), "sort direction (asc, desc)")

	customersUpdateCmd.Flags().StringVar(&updateName, "name", "", "new name")

	customersCmd.AddCommand(
		customersListCmd,
		customersCountCmd,
		customersGetCmd,
		customersCreateCmd,
		customersUpdateCmd,
		customersDeleteCmd,
		customersWatchCmd,
	)
}

func parseCustomerID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid customer id %q", arg)
	}
	return id, nil
}

// runInTenant bootstraps the app and runs fn as one unit of work bound to
// token.
func runInTenant(cmd *cobra.Command, token string, fn func(ctx context.Context, a *app) error) error {
	return withApp(cmd.Context(), func(a *app) error {
		return a.inTenant(cmd.Context(), token, func(ctx context.Context) error {
			return fn(ctx, a)
		})
	})
}

func runCustomersList(cmd *cobra.Command, _ []string) error {
	req, err := domain.NewPageRequest(listPage, listSize, listSortBy, listSortDir)
	if err != nil {
		return err
	}

	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		page, err := a.service.List(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	})
}

func runCustomersCount(cmd *cobra.Command, _ []string) error {
	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		n, err := a.service.Count(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"tenant": customersTenant, "count": n})
	})
}

func runCustomersGet(cmd *cobra.Command, args []string) error {
	id, err := parseCustomerID(args[0])
	if err != nil {
		return err
	}

	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		c, err := a.service.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	})
}

func runCustomersCreate(cmd *cobra.Command, args []string) error {
	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		created, err := a.service.Create(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), created)
	})
}

func runCustomersUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseCustomerID(args[0])
	if err != nil {
		return err
	}

	var patch domain.CustomerPatch
	if cmd.Flags().Changed("name") {
		patch.Name = &updateName
	}

	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		c, err := a.service.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	})
}

func runCustomersDelete(cmd *cobra.Command, args []string) error {
	id, err := parseCustomerID(args[0])
	if err != nil {
		return err
	}

	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		c, err := a.service.Delete(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	})
}

func runCustomersWatch(cmd *cobra.Command, _ []string) error {
	return runInTenant(cmd, customersTenant, func(ctx context.Context, a *app) error {
		if a.events == nil {
			return errors.New("watch requires TENANCY_REDIS_ADDR")
		}

		events, cleanup, err := a.events.Subscribe(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		for ev := range events {
			if err := printJSON(cmd.OutOrStdout(), ev); err != nil {
				return err
			}
		}
		return nil
	})
}
