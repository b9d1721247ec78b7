package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/Diony-dev/Veloce/internal/reporting"
)

// ErrUnknownReport is returned for names outside Names.
var ErrUnknownReport = errors.New("export: unknown report")

// Source produces the exportable reports.
type Source interface {
	CashReconciliation(ctx context.Context, orgID uuid.UUID, date string) reporting.CashReconciliation
	Receivables(ctx context.Context, orgID uuid.UUID) reporting.Receivables
	Fiscal(ctx context.Context, orgID uuid.UUID, start, end string) reporting.FiscalSummary
	Sales(ctx context.Context, orgID uuid.UUID, start, end string) reporting.SalesRange
	Expenses(ctx context.Context, orgID uuid.UUID, start, end string) reporting.ExpenseRange
}

// Params are the optional date filters of an export. Date applies to the
// cash reconciliation, Start and End to the range reports.
type Params struct {
	Date  string
	Start string
	End   string
}

// Prepared is a built report ready to be written as CSV.
type Prepared struct {
	Name     string
	Degraded bool
	Write    func(io.Writer) error
}

// Prepare builds the named report so callers can set headers before writing.
func Prepare(ctx context.Context, src Source, orgID uuid.UUID, name string, p Params, f Formatter) (Prepared, error) {
	out := Prepared{Name: name}
	switch name {
	case CashReconciliation:
		r := src.CashReconciliation(ctx, orgID, p.Date)
		out.Degraded = r.Degraded
		out.Write = func(w io.Writer) error { return WriteCashReconciliationCSV(w, r, f) }
	case Receivables:
		r := src.Receivables(ctx, orgID)
		out.Degraded = r.Degraded
		out.Write = func(w io.Writer) error { return WriteReceivablesCSV(w, r, f) }
	case Fiscal:
		r := src.Fiscal(ctx, orgID, p.Start, p.End)
		out.Degraded = r.Degraded
		out.Write = func(w io.Writer) error { return WriteFiscalCSV(w, r, f) }
	case Sales:
		r := src.Sales(ctx, orgID, p.Start, p.End)
		out.Degraded = r.Degraded
		out.Write = func(w io.Writer) error { return WriteSalesCSV(w, r, f) }
	case Expenses:
		r := src.Expenses(ctx, orgID, p.Start, p.End)
		out.Degraded = r.Degraded
		out.Write = func(w io.Writer) error { return WriteExpensesCSV(w, r, f) }
	default:
		return Prepared{}, fmt.Errorf("%w %q", ErrUnknownReport, name)
	}
	return out, nil
}
