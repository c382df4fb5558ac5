package main

import (
	"fmt"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/spf13/cobra"
)

func resyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resync <account-id>",
		Short: "Reset an account's cursor and re-fetch its full history",
		Long: `Clears the account's sync cursor and fetches the full backfill window
again. Existing transactions are deduplicated, and user-assigned
categories are preserved.`,
		Args: cobra.ExactArgs(1),
		RunE: runResync,
	}

	cmd.Flags().Bool("confirm", false, "Confirm the full resync")

	return cmd
}

func runResync(cmd *cobra.Command, args []string) error {
	confirm, _ := cmd.Flags().GetBool("confirm")
	if !confirm {
		fmt.Println(cli.FormatWarning("A full resync re-fetches the entire backfill window. Re-run with --confirm to proceed."))
		return nil
	}

	ctx := cmd.Context()

	syncService, store, err := initSyncService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := syncService.ForceResync(ctx, args[0])
	if err != nil {
		return fmt.Errorf("resync failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Resynced account %s: %d new, %d updated",
		args[0], result.Created, result.Updated)))
	return nil
}
