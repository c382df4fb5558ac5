package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/ofx"
	"github.com/spf13/cobra"
)

func init() {
	importOFXCmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX statement files exported from your
bank, for history the aggregator cannot reach.

Examples:
  # Import a single file into an account
  caixahub import-ofx --account acc-123 ~/Downloads/extrato_jan_2026.ofx

  # Import every OFX file in a directory
  caixahub import-ofx --account acc-123 ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	importOFXCmd.Flags().String("account", "", "Account to import into (required)")
	importOFXCmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	rootCmd.AddCommand(importOFXCmd)
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if accountID == "" {
		return fmt.Errorf("--account is required")
	}

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("account %s: %w", accountID, err)
	}

	slog.Info("Importing OFX files",
		"file_count", len(allFiles),
		"account", account.Name,
		"dry_run", dryRun)

	parser := ofx.NewParser()

	var allTransactions []model.Transaction
	var contents [][]byte
	seen := make(map[string]bool)

	for _, filePath := range allFiles {
		data, err := os.ReadFile(filePath) // #nosec G304
		if err != nil {
			slog.Error("Failed to read file", "file", filePath, "error", err)
			continue
		}
		contents = append(contents, data)

		transactions, err := parser.ParseFile(ctx, bytes.NewReader(data))
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			continue
		}

		added := 0
		for _, tx := range transactions {
			if seen[tx.ExternalID] {
				continue
			}
			seen[tx.ExternalID] = true

			tx.AccountID = account.ID
			tx.Hash = tx.GenerateHash()
			allTransactions = append(allTransactions, tx)
			added++
		}

		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"transactions_found", len(transactions),
			"added", added,
			"duplicates", len(transactions)-added)
	}

	// Everything lands in one account; statements drawn from several bank
	// accounts are almost certainly a mistake.
	if ids := statementAccountIDs(ctx, parser, contents); len(ids) > 1 {
		slog.Warn("Statements span multiple bank accounts",
			"statement_accounts", ids, "account", account.Name)
	}

	if len(allTransactions) == 0 {
		fmt.Println(cli.FormatWarning("No transactions found in any file"))
		return nil
	}

	if dryRun {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: would import %d transactions into %s",
			len(allTransactions), account.Name)))
		return nil
	}

	stats, err := store.UpsertTransactions(ctx, allTransactions)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions into %s (%d new, %d updated)",
		len(allTransactions), account.Name, stats.Created, stats.Updated)))
	return nil
}

// statementAccountIDs returns the sorted set of bank account ids found in the
// parsed statements. Unparseable documents are skipped; the parse loop
// already reported them.
func statementAccountIDs(ctx context.Context, parser *ofx.Parser, contents [][]byte) []string {
	set := make(map[string]bool)
	for _, data := range contents {
		ids, err := parser.GetAccounts(ctx, bytes.NewReader(data))
		if err != nil {
			continue
		}
		for _, id := range ids {
			set[id] = true
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
