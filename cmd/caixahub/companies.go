package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/spf13/cobra"
)

func companiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companies",
		Short: "Manage companies",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all companies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			companies, err := store.ListCompanies(ctx)
			if err != nil {
				return fmt.Errorf("failed to list companies: %w", err)
			}

			if len(companies) == 0 {
				fmt.Println(cli.FormatInfo("No companies yet. Add one with 'caixahub companies add'."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, company := range companies {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					company.ID, company.Name, company.CreatedAt.Local().Format("2006-01-02"))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			company, err := store.CreateCompany(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to create company: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created company %s (%s)", company.Name, company.ID)))
			return nil
		},
	})

	return cmd
}
