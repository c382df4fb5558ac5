package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage transaction categories",
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesSetCmd())

	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tDESCRIPTION")
			for _, category := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					category.ID, category.Name, category.Type, category.Description)
			}
			return w.Flush()
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			typeStr, _ := cmd.Flags().GetString("type")

			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.CreateCategory(ctx, args[0], description, model.CategoryType(typeStr))
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created category %s (id %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().String("description", "", "Category description")
	cmd.Flags().String("type", "expense", "Category type (income, expense)")

	return cmd
}

func categoriesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <transaction-id> <category-name>",
		Short: "Assign a category to a transaction",
		Long: `Sets a transaction's category as a user decision. User-assigned
categories take precedence and are never overwritten by later syncs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.GetCategoryByName(ctx, args[1])
			if err != nil {
				return fmt.Errorf("category %q: %w", args[1], err)
			}

			if err := store.SetTransactionCategory(ctx, args[0], category.ID, model.CategorySourceUser); err != nil {
				return fmt.Errorf("failed to set category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %s categorized as %s", args[0], category.Name)))
			return nil
		},
	}
}
