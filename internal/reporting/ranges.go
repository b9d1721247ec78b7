package reporting

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

const hoursPerDay = 24

// Receivables lists open invoices with their age in fractional days, oldest
// first.
func (e *Engine) Receivables(ctx context.Context, orgID uuid.UUID) Receivables {
	b := e.Bucketer(ctx, orgID)
	now := b.Now()
	out := Receivables{AsOf: now, Items: []Receivable{}}

	open, err := e.loadInvoices(ctx, ReportReceivables, b, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: ledger.ReceivableStatuses,
	}, &out.Health)
	if err != nil {
		out = Receivables{AsOf: now, Items: []Receivable{}}
		e.degrade(ctx, ReportReceivables, orgID, &out.Health, err)
		return out
	}

	sortInvoices(open)
	for _, inv := range open {
		out.Items = append(out.Items, Receivable{
			InvoiceID:   inv.ID,
			Number:      inv.Number,
			Customer:    inv.CustomerName(),
			Status:      string(inv.Status),
			Total:       inv.Total,
			IssuedAt:    inv.At,
			DaysOverdue: now.Sub(inv.At).Hours() / hoursPerDay,
		})
		out.TotalDue = out.TotalDue.Add(inv.Total)
	}
	return out
}

// FiscalSummary splits every paid invoice of [start, end] into taxable base
// and tax at the organization rate.
func (e *Engine) FiscalSummary(ctx context.Context, orgID uuid.UUID, start, end time.Time) FiscalSummary {
	st := e.Settings(ctx, orgID)
	b := e.bucketer(st)
	from, to := b.DayRange(start, end)
	out := FiscalSummary{Start: b.DayKey(from), End: b.DayKey(to), TaxRate: st.TaxRate, Rows: []FiscalRow{}}

	paid, err := e.loadInvoices(ctx, ReportFiscal, b, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: paidOnly, From: from, To: to,
	}, &out.Health)
	if err != nil {
		out = FiscalSummary{Start: out.Start, End: out.End, TaxRate: st.TaxRate, Rows: []FiscalRow{}}
		e.degrade(ctx, ReportFiscal, orgID, &out.Health, err)
		return out
	}

	calc := TaxCalculator{Rate: st.TaxRate, Places: st.TaxPlaces}
	sortInvoices(paid)
	for _, inv := range paid {
		base, tax := calc.Split(inv.Total)
		out.Rows = append(out.Rows, FiscalRow{
			InvoiceID: inv.ID,
			Date:      inv.At,
			Number:    inv.Number,
			Customer:  inv.CustomerName(),
			Total:     inv.Total,
			Base:      base,
			Tax:       tax,
		})
		out.TotalSold = out.TotalSold.Add(inv.Total)
		out.TotalBase = out.TotalBase.Add(base)
		out.TotalTax = out.TotalTax.Add(tax)
	}
	return out
}

// SalesByRange groups paid invoices of [start, end] by local calendar day.
func (e *Engine) SalesByRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) SalesRange {
	b := e.Bucketer(ctx, orgID)
	from, to := b.DayRange(start, end)
	out := SalesRange{Start: b.DayKey(from), End: b.DayKey(to), Days: []DailySales{}}

	paid, err := e.loadInvoices(ctx, ReportSalesRange, b, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: paidOnly, From: from, To: to,
	}, &out.Health)
	if err != nil {
		out = SalesRange{Start: out.Start, End: out.End, Days: []DailySales{}}
		e.degrade(ctx, ReportSalesRange, orgID, &out.Health, err)
		return out
	}

	byDay := make(map[string]*DailySales)
	for _, inv := range paid {
		key := b.DayKey(inv.At)
		day, ok := byDay[key]
		if !ok {
			day = &DailySales{Day: key}
			byDay[key] = day
		}
		day.Total = day.Total.Add(inv.Total)
		day.Invoices++
		out.Total = out.Total.Add(inv.Total)
	}
	for _, day := range byDay {
		out.Days = append(out.Days, *day)
	}
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Day < out.Days[j].Day })
	return out
}

// ExpensesByRange lists the expenses of [start, end], oldest first.
func (e *Engine) ExpensesByRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) ExpenseRange {
	b := e.Bucketer(ctx, orgID)
	from, to := b.DayRange(start, end)
	out := ExpenseRange{Start: b.DayKey(from), End: b.DayKey(to), Expenses: []ExpenseLine{}}

	expenses, err := e.loadExpenses(ctx, ReportExpenseRange, b, ledger.ExpenseFilter{
		OrganizationID: orgID, From: from, To: to,
	}, &out.Health)
	if err != nil {
		out = ExpenseRange{Start: out.Start, End: out.End, Expenses: []ExpenseLine{}}
		e.degrade(ctx, ReportExpenseRange, orgID, &out.Health, err)
		return out
	}

	sortExpenses(expenses)
	for _, exp := range expenses {
		category := exp.Category
		if category == "" {
			category = UncategorizedLabel
		}
		out.Expenses = append(out.Expenses, ExpenseLine{
			ExpenseID:   exp.ID,
			Date:        exp.At,
			Description: exp.Description,
			Category:    category,
			Vendor:      exp.Vendor,
			RecordedBy:  exp.RecordedBy,
			Amount:      exp.Amount,
		})
		out.Total = out.Total.Add(exp.Amount)
	}
	return out
}

// CashReconciliation itemizes the paid invoices and expenses of one local day
// and splits income into cash and bank totals.
func (e *Engine) CashReconciliation(ctx context.Context, orgID uuid.UUID, day time.Time) CashReconciliation {
	b := e.Bucketer(ctx, orgID)
	from, to := b.DayRange(day, day)
	out := CashReconciliation{Date: b.DayKey(from), Income: []IncomeEntry{}, Outflows: []OutflowEntry{}}

	paid, err := e.loadInvoices(ctx, ReportCashReconciliation, b, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: paidOnly, From: from, To: to,
	}, &out.Health)
	if err != nil {
		return e.emptyReconciliation(ctx, orgID, out.Date, err)
	}
	expenses, err := e.loadExpenses(ctx, ReportCashReconciliation, b, ledger.ExpenseFilter{
		OrganizationID: orgID, From: from, To: to,
	}, &out.Health)
	if err != nil {
		return e.emptyReconciliation(ctx, orgID, out.Date, err)
	}

	sortInvoices(paid)
	sum := &out.Summary
	for _, inv := range paid {
		method := strings.TrimSpace(string(inv.PaymentMethod))
		cash := inv.PaymentMethod.IsCash()
		if cash && method == "" {
			method = string(ledger.PaymentCash)
		}
		out.Income = append(out.Income, IncomeEntry{
			Time:          inv.At.Format("15:04"),
			InvoiceID:     inv.ID,
			Number:        orDash(inv.Number),
			Customer:      inv.CustomerName(),
			Seller:        orDash(inv.Seller),
			PaymentMethod: method,
			Cash:          cash,
			Total:         inv.Total,
		})
		if cash {
			sum.CashTotal = sum.CashTotal.Add(inv.Total)
		} else {
			sum.BankTotal = sum.BankTotal.Add(inv.Total)
		}
	}
	sortExpenses(expenses)
	for _, exp := range expenses {
		out.Outflows = append(out.Outflows, OutflowEntry{
			Time:        exp.At.Format("15:04"),
			ExpenseID:   exp.ID,
			Description: exp.Description,
			Category:    orDash(exp.Category),
			RecordedBy:  orDash(exp.RecordedBy),
			Amount:      exp.Amount,
		})
		sum.TotalExpenses = sum.TotalExpenses.Add(exp.Amount)
	}
	sum.TotalIncome = sum.CashTotal.Add(sum.BankTotal)
	sum.Net = sum.TotalIncome.Sub(sum.TotalExpenses)
	sum.SalesCount = len(out.Income)
	sum.ExpenseCount = len(out.Outflows)
	return out
}

func (e *Engine) emptyReconciliation(ctx context.Context, orgID uuid.UUID, date string, err error) CashReconciliation {
	out := CashReconciliation{Date: date, Income: []IncomeEntry{}, Outflows: []OutflowEntry{}}
	out.Summary = ReconciliationSummary{
		TotalIncome: decimal.Zero, CashTotal: decimal.Zero, BankTotal: decimal.Zero,
		TotalExpenses: decimal.Zero, Net: decimal.Zero,
	}
	e.degrade(ctx, ReportCashReconciliation, orgID, &out.Health, err)
	return out
}

func sortInvoices(items []datedInvoice) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].At.Equal(items[j].At) {
			return items[i].At.Before(items[j].At)
		}
		return items[i].Number < items[j].Number
	})
}

func sortExpenses(items []datedExpense) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].At.Before(items[j].At)
	})
}
