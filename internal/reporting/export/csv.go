// Package export serialises reports for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Diony-dev/Veloce/internal/reporting"
)

const dateLayout = "2006-01-02"

// Report names accepted by Prepare.
const (
	CashReconciliation = "cash-reconciliation"
	Receivables        = "receivables"
	Fiscal             = "fiscal"
	Sales              = "sales"
	Expenses           = "expenses"
)

// Names lists the exportable reports.
var Names = []string{CashReconciliation, Receivables, Fiscal, Sales, Expenses}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCashReconciliationCSV emits income lines, then expense lines, then the
// day summary.
func WriteCashReconciliationCSV(w io.Writer, r reporting.CashReconciliation, f Formatter) error {
	rows := make([][]string, 0, len(r.Income)+len(r.Outflows)+6)
	for _, in := range r.Income {
		rows = append(rows, []string{"income", r.Date, in.Time, in.Number, in.Customer, in.Seller, in.PaymentMethod, f.Money(in.Total)})
	}
	for _, out := range r.Outflows {
		rows = append(rows, []string{"expense", r.Date, out.Time, "", out.Description, out.RecordedBy, out.Category, f.Money(out.Amount.Neg())})
	}
	s := r.Summary
	rows = append(rows,
		[]string{"summary", r.Date, "", "", "Cash", "", "", f.Money(s.CashTotal)},
		[]string{"summary", r.Date, "", "", "Bank", "", "", f.Money(s.BankTotal)},
		[]string{"summary", r.Date, "", "", "Total income", "", "", f.Money(s.TotalIncome)},
		[]string{"summary", r.Date, "", "", "Total expenses", "", "", f.Money(s.TotalExpenses)},
		[]string{"summary", r.Date, "", "", "Net", "", "", f.Money(s.Net)},
	)
	return writeAll(w, []string{"Type", "Date", "Time", "Number", "Detail", "By", "Method", "Amount"}, rows)
}

// WriteReceivablesCSV lists open invoices with their age.
func WriteReceivablesCSV(w io.Writer, r reporting.Receivables, f Formatter) error {
	rows := make([][]string, 0, len(r.Items)+1)
	for _, item := range r.Items {
		rows = append(rows, []string{
			item.IssuedAt.Format(dateLayout),
			item.Number,
			item.Customer,
			item.Status,
			f.Days(item.DaysOverdue),
			f.Money(item.Total),
		})
	}
	rows = append(rows, []string{"", "", "", "Total", "", f.Money(r.TotalDue)})
	return writeAll(w, []string{"Date", "Number", "Customer", "Status", "Days", "Total"}, rows)
}

// WriteFiscalCSV prints the per invoice tax split and totals.
func WriteFiscalCSV(w io.Writer, r reporting.FiscalSummary, f Formatter) error {
	rows := make([][]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		rows = append(rows, []string{
			row.Date.Format(dateLayout),
			row.Number,
			row.Customer,
			f.Money(row.Base),
			f.Money(row.Tax),
			f.Money(row.Total),
		})
	}
	rows = append(rows, []string{r.Start + " / " + r.End, "", "Total", f.Money(r.TotalBase), f.Money(r.TotalTax), f.Money(r.TotalSold)})
	return writeAll(w, []string{"Date", "Number", "Customer", "Base", "Tax", "Total"}, rows)
}

// WriteSalesCSV prints one row per day.
func WriteSalesCSV(w io.Writer, r reporting.SalesRange, f Formatter) error {
	rows := make([][]string, 0, len(r.Days)+1)
	for _, day := range r.Days {
		rows = append(rows, []string{day.Day, strconv.Itoa(day.Invoices), f.Money(day.Total)})
	}
	rows = append(rows, []string{"Total", "", f.Money(r.Total)})
	return writeAll(w, []string{"Day", "Invoices", "Total"}, rows)
}

// WriteExpensesCSV prints every expense of the range.
func WriteExpensesCSV(w io.Writer, r reporting.ExpenseRange, f Formatter) error {
	rows := make([][]string, 0, len(r.Expenses)+1)
	for _, exp := range r.Expenses {
		rows = append(rows, []string{
			exp.Date.Format(dateLayout),
			exp.Description,
			exp.Category,
			exp.Vendor,
			exp.RecordedBy,
			f.Money(exp.Amount),
		})
	}
	rows = append(rows, []string{"", "Total", "", "", "", f.Money(r.Total)})
	return writeAll(w, []string{"Date", "Description", "Category", "Vendor", "Recorded by", "Amount"}, rows)
}
