package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	auditTenant string
	auditLimit  int
	auditOffset int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log of one tenant",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

func init() {
	auditCmd.PersistentFlags().StringVarP(&auditTenant, "tenant", "t", "", "tenant identifier (required)")
	_ = auditCmd.MarkPersistentFlagRequired("tenant")

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of entries")
	auditListCmd.Flags().IntVar(&auditOffset, "offset", 0, "entries to skip")

	auditCmd.AddCommand(auditListCmd)
}

func runAuditList(cmd *cobra.Command, _ []string) error {
	return runInTenant(cmd, auditTenant, func(ctx context.Context, a *app) error {
		entries, err := a.service.History(ctx, auditLimit, auditOffset)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), entries)
	})
}
