package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/caixahub/caixahub/internal/config"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/pluggy"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage bank accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsLinkCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println(cli.FormatInfo("No accounts yet. Add one with 'caixahub accounts add'."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLINKED\tLAST SYNC")
			for _, account := range accounts {
				lastSync := "never"
				if at, ok := account.Cursor.Time(); ok {
					lastSync = at.Local().Format("2006-01-02 15:04")
				}
				linked := "no"
				if account.ExternalID != "" {
					linked = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					account.ID, account.Name, account.Status, linked, lastSync)
			}
			return w.Flush()
		},
	}
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, _ := cmd.Flags().GetString("company")
			if companyID == "" {
				return fmt.Errorf("--company is required")
			}

			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetCompany(ctx, companyID); err != nil {
				return fmt.Errorf("company %s: %w", companyID, err)
			}

			account := &model.Account{
				CompanyID: companyID,
				Name:      args[0],
			}
			if err := store.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created account %s (%s)", account.Name, account.ID)))
			fmt.Println(cli.SubtleStyle.Render("Link it to a bank connection with 'caixahub accounts link'."))
			return nil
		},
	}

	cmd.Flags().String("company", "", "Company the account belongs to")

	return cmd
}

func accountsLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <account-id> <item-id> [external-id]",
		Short: "Link an account to an aggregator connection",
		Long: `Connects a local account to a bank account inside an aggregator item.
When the item holds exactly one bank account the external ID can be
omitted; otherwise the available accounts are listed.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID, itemID := args[0], args[1]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetAccount(ctx, accountID); err != nil {
				return fmt.Errorf("account %s: %w", accountID, err)
			}

			pluggyCfg, err := config.LoadPluggyConfig()
			if err != nil {
				return fmt.Errorf("failed to load aggregator config: %w", err)
			}
			bank, err := pluggy.NewClient(*pluggyCfg)
			if err != nil {
				return err
			}

			remote, err := bank.GetAccounts(ctx, itemID)
			if err != nil {
				return fmt.Errorf("failed to list aggregator accounts for item %s: %w", itemID, err)
			}
			if len(remote) == 0 {
				return fmt.Errorf("item %s has no bank accounts", itemID)
			}

			var externalID string
			switch {
			case len(args) == 3:
				externalID = args[2]
				found := false
				for _, r := range remote {
					if r.ExternalID == externalID {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("item %s has no account with external id %s", itemID, externalID)
				}
			case len(remote) == 1:
				externalID = remote[0].ExternalID
			default:
				fmt.Println(cli.FormatInfo("Item has multiple accounts; pass the external ID to link one:"))
				for _, r := range remote {
					fmt.Printf("  %s  %s (%s %s %.2f)\n", r.ExternalID, r.Name, r.Type, r.Currency, r.Balance)
				}
				return fmt.Errorf("external id required")
			}

			if err := store.LinkAccount(ctx, accountID, itemID, externalID); err != nil {
				return fmt.Errorf("failed to link account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Linked account %s to %s", accountID, externalID)))
			return nil
		},
	}
}
