package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Diony-dev/Veloce/internal/reporting/export"
)

type reportFlags struct {
	org   string
	date  string
	start string
	end   string
	year  int
	limit int
	csv   bool
}

// jsonReports maps names to their builders; export names are handled by
// export.Prepare when --csv is set.
var jsonReports = map[string]func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any{
	"dashboard": func(ctx context.Context, src ReportSource, org uuid.UUID, _ reportFlags) any {
		return src.Dashboard(ctx, org)
	},
	"kpis": func(ctx context.Context, src ReportSource, org uuid.UUID, _ reportFlags) any {
		return src.KPIs(ctx, org)
	},
	"comparative": func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any {
		return src.Comparative(ctx, org, f.year)
	},
	"categories": func(ctx context.Context, src ReportSource, org uuid.UUID, _ reportFlags) any {
		return src.Categories(ctx, org)
	},
	"top-clients": func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any {
		return src.TopClients(ctx, org, f.limit)
	},
	export.Receivables: func(ctx context.Context, src ReportSource, org uuid.UUID, _ reportFlags) any {
		return src.Receivables(ctx, org)
	},
	export.CashReconciliation: func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any {
		return src.CashReconciliation(ctx, org, f.date)
	},
	export.Fiscal: func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any {
		return src.Fiscal(ctx, org, f.start, f.end)
	},
	export.Sales: func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any {
		return src.Sales(ctx, org, f.start, f.end)
	},
	export.Expenses: func(ctx context.Context, src ReportSource, org uuid.UUID, f reportFlags) any {
		return src.Expenses(ctx, org, f.start, f.end)
	},
}

func reportNames() []string {
	names := make([]string, 0, len(jsonReports))
	for name := range jsonReports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newReportCommand(deps Deps) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Print a report as JSON, or as CSV with --csv",
		Long:  "Reports: " + strings.Join(reportNames(), ", "),
		Example: `  veloctl report dashboard --org 7c1b...
  veloctl report fiscal --org 7c1b... --start 2024-03-01 --end 2024-03-31 --csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			build, ok := jsonReports[name]
			if !ok {
				return fmt.Errorf("unknown report %q (want one of %s)", name, strings.Join(reportNames(), ", "))
			}
			org, err := uuid.Parse(strings.TrimSpace(flags.org))
			if err != nil {
				return fmt.Errorf("--org: %w", err)
			}
			if deps.OpenReports == nil {
				return errors.New("reports not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), deps.timeout())
			defer cancel()
			src, closeFn, err := deps.OpenReports(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if flags.csv {
				params := export.Params{Date: flags.date, Start: flags.start, End: flags.end}
				prepared, err := export.Prepare(ctx, src, org, name, params, deps.Formatter)
				if err != nil {
					return err
				}
				if prepared.Degraded {
					cmd.PrintErrln("warning: report degraded, ledger data incomplete")
				}
				return prepared.Write(cmd.OutOrStdout())
			}
			return printJSON(cmd.OutOrStdout(), build(ctx, src, org, flags))
		},
	}
	cmd.Flags().StringVar(&flags.org, "org", "", "organization id (required)")
	cmd.Flags().StringVar(&flags.date, "date", "", "day for cash-reconciliation (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&flags.start, "start", "", "range start (YYYY-MM-DD, default first of month)")
	cmd.Flags().StringVar(&flags.end, "end", "", "range end, inclusive (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&flags.year, "year", 0, "year for comparative (default current)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "size of top-clients (default configured)")
	cmd.Flags().BoolVar(&flags.csv, "csv", false, "write CSV instead of JSON (export reports only)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
