package main

import (
	"fmt"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [account-id]",
		Short: "Sync transactions from the aggregator",
		Long: `Fetches new transactions for one account, or for every active linked
account with --all. Re-running a sync is safe: transactions already
ingested are recognized by their aggregator ID and never duplicated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSync,
	}

	cmd.Flags().Bool("all", false, "Sync every active linked account")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	if all == (len(args) == 1) {
		return fmt.Errorf("provide either an account ID or --all")
	}

	ctx := cmd.Context()

	syncService, store, err := initSyncService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !all {
		result, err := syncService.Sync(ctx, args[0])
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Synced account %s: %d new, %d updated",
			args[0], result.Created, result.Updated)))
		return nil
	}

	var bar *progressbar.ProgressBar
	result, err := syncService.SyncAll(ctx, func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "Syncing accounts")
		}
		_ = bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Synced %d accounts: %d new, %d updated",
		result.Accounts, result.Created, result.Updated)))

	for _, syncErr := range result.Errors {
		fmt.Println(cli.FormatWarning(syncErr.Error()))
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d accounts failed to sync", len(result.Errors))
	}

	return nil
}
