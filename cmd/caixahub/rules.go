package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage merchant categorization rules",
		Long: `Merchant rules map a merchant name to a category. During sync, a rule
outranks the category hint the aggregator provides for the merchant.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List merchant rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListMerchantRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list merchant rules: %w", err)
			}

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			categoryNames := make(map[int]string, len(categories))
			for _, category := range categories {
				categoryNames[category.ID] = category.Name
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MERCHANT\tCATEGORY\tSOURCE\tUSED\tUPDATED")
			for _, rule := range rules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					rule.Merchant,
					categoryNames[rule.CategoryID],
					rule.Source,
					rule.UseCount,
					rule.LastUpdated.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func rulesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <merchant> <category-name>",
		Short: "Add or replace a merchant rule",
		Long: `Creates a rule assigning future transactions from the merchant to the
category. Adding a rule for a merchant that already has one replaces it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := addMerchantRule(ctx, store, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule saved: %s -> %s", rule.Merchant, args[1])))
			return nil
		},
	}
}

// addMerchantRule resolves the category by name and saves a manual rule for
// the merchant.
func addMerchantRule(ctx context.Context, store service.Storage, merchant, categoryName string) (*model.MerchantRule, error) {
	category, err := store.GetCategoryByName(ctx, categoryName)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", categoryName, err)
	}

	rule := &model.MerchantRule{
		Merchant:   merchant,
		CategoryID: category.ID,
		Source:     model.RuleSourceManual,
	}
	if err := store.SaveMerchantRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save merchant rule: %w", err)
	}

	return rule, nil
}
