package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/caixahub/caixahub/internal/cli"
	"github.com/caixahub/caixahub/internal/config"
	"github.com/caixahub/caixahub/internal/report"
	"github.com/caixahub/caixahub/internal/service"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a cash flow report",
		Long: `Aggregates income and expenses by category over a date range. Prints
to the terminal by default; --sheets exports to Google Sheets instead.`,
		RunE: runReport,
	}

	cmd.Flags().String("start", "", "Start date (YYYY-MM-DD, default 30 days ago)")
	cmd.Flags().String("end", "", "End date (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("sheets", false, "Export to Google Sheets")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	toSheets, _ := cmd.Flags().GetBool("sheets")

	end := time.Now()
	start := end.AddDate(0, 0, -30)

	var err error
	if startStr != "" {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
		// Make the end date inclusive
		end = end.AddDate(0, 0, 1).Add(-time.Second)
	}
	if end.Before(start) {
		return fmt.Errorf("end date is before start date")
	}

	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := store.GetCashFlow(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to compute cash flow: %w", err)
	}

	if toSheets {
		reportCfg, err := config.LoadReportConfig()
		if err != nil {
			return fmt.Errorf("failed to load sheets config: %w", err)
		}

		writer, err := report.NewWriter(ctx, *reportCfg)
		if err != nil {
			return err
		}

		if err := exportCashFlow(ctx, writer, summary); err != nil {
			return err
		}

		fmt.Println(cli.FormatSuccess("Report exported to Google Sheets"))
		return nil
	}

	printCashFlow(summary)
	return nil
}

// exportCashFlow hands the summary to any report destination.
func exportCashFlow(ctx context.Context, writer service.ReportWriter, summary *service.CashFlowSummary) error {
	if err := writer.Write(ctx, summary); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	return nil
}

func printCashFlow(summary *service.CashFlowSummary) {
	var b strings.Builder

	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		summary.DateRange.Start.Format("2006-01-02"),
		summary.DateRange.End.Format("2006-01-02"))

	fmt.Fprintf(&b, "%s\n", cli.BoldStyle.Render("Income"))
	writeCategoryLines(&b, summary.IncomeByCategory)
	fmt.Fprintf(&b, "  Total: R$ %.2f\n\n", summary.TotalIncome)

	fmt.Fprintf(&b, "%s\n", cli.BoldStyle.Render("Expenses"))
	writeCategoryLines(&b, summary.ExpensesByCategory)
	fmt.Fprintf(&b, "  Total: R$ %.2f\n\n", summary.TotalExpenses)

	net := fmt.Sprintf("Net cash flow: R$ %.2f", summary.NetCashFlow)
	if summary.NetCashFlow >= 0 {
		fmt.Fprint(&b, cli.SuccessStyle.Render(net))
	} else {
		fmt.Fprint(&b, cli.ErrorStyle.Render(net))
	}

	fmt.Println(cli.RenderBox(cli.ChartIcon+" Cash Flow", b.String()))
}

func writeCategoryLines(b *strings.Builder, byCategory map[string]service.CategorySummary) {
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cat := byCategory[name]
		fmt.Fprintf(b, "  %-24s %4d  R$ %.2f\n", name, cat.Count, cat.Amount)
	}
}
