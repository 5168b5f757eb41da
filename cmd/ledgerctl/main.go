// Command ledgerctl inspects a transaction export from the command line.
// It runs the full pipeline in-process against the given file, no server
// or database required.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ivyfin/ivy-ledger/internal/domain/chat"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/aggregate"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/service"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var sourcePath string
	var svc *service.PipelineService

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect a transaction export",
		Long:          "ledgerctl ingests a delimited transaction export and answers queries over it locally.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			svc = service.NewPipelineService(store.NewStore(), nil, logger)

			f, err := os.Open(sourcePath)
			if err != nil {
				return fmt.Errorf("opening %s: %w", sourcePath, err)
			}
			defer f.Close()

			result, err := svc.Refresh(cmd.Context(), f)
			if err != nil {
				return err
			}
			if result.RowsInvalid > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d of %d records are invalid\n",
					result.RowsInvalid, result.RowsTotal)
			}
			for _, fe := range result.FieldErrors {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", fe)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&sourcePath, "file", "f", "transactions.csv", "path to the export file")

	root.AddCommand(
		newIngestCmd(&svc),
		newListCmd(&svc),
		newGetCmd(&svc),
		newSummaryCmd(&svc),
		newCategoriesCmd(&svc),
		newTopCmd(&svc),
		newMonthsCmd(&svc),
		newProvidersCmd(&svc),
		newStatsCmd(&svc),
		newAskCmd(&svc),
	)
	return root
}

func newIngestCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run the pipeline and report the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := (*svc).Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d records (%d invalid).\n",
				s.TotalRecords, s.InvalidCount)
			return nil
		},
	}
}

func newListCmd(svc **service.PipelineService) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := (*svc).List(limit)
			if err != nil {
				return err
			}
			for _, t := range records {
				fmt.Fprintln(cmd.OutOrStdout(), formatRecord(t))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows to print")
	return cmd
}

func newGetCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "get <transaction-id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := (*svc).GetByID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatRecord(t))
			fmt.Fprintf(out, "  type=%s month=%s invalid=%v\n", t.TransactionType, t.MonthYear, t.IsInvalid)
			if t.IsProviderInvoice {
				fmt.Fprintf(out, "  provider invoice, number %s\n", t.InvoiceNumber)
			}
			return nil
		},
	}
}

func newSummaryCmd(svc **service.PipelineService) *cobra.Command {
	var category, provider string
	var includeInvalid bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate statistics over the dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := (*svc).Summary(aggregate.Filter{
				Category:       category,
				Provider:       provider,
				IncludeInvalid: includeInvalid,
			})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transactions: %d\n", s.TotalCount)
			fmt.Fprintf(out, "Net amount:   %s\n", s.TotalAmount.StringFixed(2))
			fmt.Fprintf(out, "Categories:   %d distinct\n", len(s.Categories))
			if s.DateRange != nil {
				fmt.Fprintf(out, "Date range:   %s to %s\n",
					s.DateRange.Earliest.Format("2006-01-02"), s.DateRange.Latest.Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&provider, "provider", "", "only this provider")
	cmd.Flags().BoolVar(&includeInvalid, "include-invalid", false, "include invalid records")
	return cmd
}

func newCategoriesCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Per-category totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range (*svc).CategorySummaries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s total=%s count=%d avg=%s\n",
					c.Category, c.TotalAmount.StringFixed(2), c.TransactionCount, c.AvgAmount.StringFixed(2))
			}
			return nil
		},
	}
}

func newTopCmd(svc **service.PipelineService) *cobra.Command {
	var kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank categories by volume",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var t ledger.TransactionType
			switch strings.ToLower(kind) {
			case "expense":
				t = ledger.TypeExpense
			case "income":
				t = ledger.TypeIncome
			default:
				return fmt.Errorf("type must be expense or income, got %q", kind)
			}
			for i, c := range (*svc).TopCategories(t, limit) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %-20s %s (%d transactions)\n",
					i+1, c.Category, c.TotalAmount.StringFixed(2), c.TransactionCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "expense", "expense or income")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of categories")
	return cmd
}

func newMonthsCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "Monthly income/expense flows, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range (*svc).MonthlyFlows() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  income=%s expenses=%s net=%s (%d transactions)\n",
					f.MonthYear, f.Income.StringFixed(2), f.Expenses.StringFixed(2),
					f.Net.StringFixed(2), f.TransactionCount)
			}
			return nil
		},
	}
}

func newProvidersCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Provider invoice revenue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, p := range (*svc).ProviderSummaries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-15s revenue=%s invoices=%d avg=%s\n",
					p.Provider, p.TotalRevenue.StringFixed(2), p.InvoiceCount, p.AvgInvoice.StringFixed(2))
			}
			return nil
		},
	}
}

func newStatsCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Data-quality statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := (*svc).Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Records:  %d (%d invalid, %.1f%%)\n",
				s.TotalRecords, s.InvalidCount, s.InvalidRatio*100)
			fmt.Fprintf(out, "Net:      %s\n", s.NetAmount.StringFixed(2))
			fmt.Fprintf(out, "Min/Max:  %s / %s\n", nullDecimalString(s.MinAmount), nullDecimalString(s.MaxAmount))
			if s.DateRange != nil {
				fmt.Fprintf(out, "Dates:    %s to %s\n",
					s.DateRange.Earliest.Format("2006-01-02"), s.DateRange.Latest.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newAskCmd(svc **service.PipelineService) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			responder := chat.NewResponder(*svc)
			intent, answer := responder.Answer(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", intent, answer)
			return nil
		},
	}
}

func formatRecord(t ledger.TransactionRecord) string {
	date := "          "
	if t.Date != nil {
		date = t.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%-10s %s %12s  %-18s %s",
		t.ID, date, nullDecimalString(t.Amount), t.Category, t.Description)
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}
