// Package cli implements veloctl, the operator command line of Veloce.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Diony-dev/Veloce/internal/reporting"
	"github.com/Diony-dev/Veloce/internal/reporting/export"
	"github.com/Diony-dev/Veloce/internal/tenant"
)

// ReportSource is what the report command needs from the report façade.
type ReportSource interface {
	export.Source
	Dashboard(ctx context.Context, orgID uuid.UUID) reporting.Dashboard
	KPIs(ctx context.Context, orgID uuid.UUID) reporting.MonthlyKPIs
	Comparative(ctx context.Context, orgID uuid.UUID, year int) reporting.AnnualComparative
	Categories(ctx context.Context, orgID uuid.UUID) reporting.ExpenseCategories
	TopClients(ctx context.Context, orgID uuid.UUID, limit int) reporting.TopClients
}

// Deps are opened lazily so that commands only touch the backends they use.
type Deps struct {
	OpenReports func(ctx context.Context) (ReportSource, func(), error)
	OpenJobs    func() (*JobsCLI, error)
	Verifier    func() (*tenant.Verifier, error)
	Formatter   export.Formatter
	Timeout     time.Duration
}

// NewRootCommand assembles the command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "veloctl",
		Short:         "Operate a Veloce ledger from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCommand(deps), newJobsCommand(deps), newTokenCommand(deps))
	return root
}

func (d Deps) timeout() time.Duration {
	if d.Timeout <= 0 {
		return 30 * time.Second
	}
	return d.Timeout
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
