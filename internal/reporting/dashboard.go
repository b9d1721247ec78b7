package reporting

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

var paidOnly = []ledger.InvoiceStatus{ledger.StatusPaid}

// MonthlyKPIs sums paid revenue and expenses of the current calendar month.
// The pending counter spans all dates.
func (e *Engine) MonthlyKPIs(ctx context.Context, orgID uuid.UUID) MonthlyKPIs {
	b := e.Bucketer(ctx, orgID)
	now := b.Now()
	from, to := b.MonthRange(now)
	out := MonthlyKPIs{Month: now.Format("2006-01")}

	paid, err := e.loadInvoices(ctx, ReportMonthlyKPIs, b, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: paidOnly, From: from, To: to,
	}, &out.Health)
	if err != nil {
		return e.emptyKPIs(ctx, orgID, out.Month, err)
	}
	expenses, err := e.loadExpenses(ctx, ReportMonthlyKPIs, b, ledger.ExpenseFilter{
		OrganizationID: orgID, From: from, To: to,
	}, &out.Health)
	if err != nil {
		return e.emptyKPIs(ctx, orgID, out.Month, err)
	}
	pending, err := e.reader.CountInvoices(ctx, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: ledger.UnpaidStatuses,
	})
	if err != nil {
		return e.emptyKPIs(ctx, orgID, out.Month, err)
	}

	for _, inv := range paid {
		out.Revenue = out.Revenue.Add(inv.Total)
	}
	for _, exp := range expenses {
		out.Expenses = out.Expenses.Add(exp.Amount)
	}
	out.Net = out.Revenue.Sub(out.Expenses)
	out.PendingCount = pending
	return out
}

func (e *Engine) emptyKPIs(ctx context.Context, orgID uuid.UUID, month string, err error) MonthlyKPIs {
	out := MonthlyKPIs{Month: month}
	e.degrade(ctx, ReportMonthlyKPIs, orgID, &out.Health, err)
	return out
}

// AnnualComparative buckets paid revenue and expenses of year into twelve
// months. A non-positive year selects the current one.
func (e *Engine) AnnualComparative(ctx context.Context, orgID uuid.UUID, year int) AnnualComparative {
	b := e.Bucketer(ctx, orgID)
	if year <= 0 {
		year = b.Now().Year()
	}
	out := newComparative(year)
	from, to := b.YearRange(year)

	paid, err := e.loadInvoices(ctx, ReportAnnualComparative, b, ledger.InvoiceFilter{
		OrganizationID: orgID, Statuses: paidOnly, From: from, To: to,
	}, &out.Health)
	if err != nil {
		return e.emptyComparative(ctx, orgID, year, err)
	}
	expenses, err := e.loadExpenses(ctx, ReportAnnualComparative, b, ledger.ExpenseFilter{
		OrganizationID: orgID, From: from, To: to,
	}, &out.Health)
	if err != nil {
		return e.emptyComparative(ctx, orgID, year, err)
	}

	for _, inv := range paid {
		idx := b.MonthIndex(inv.At)
		out.Revenue[idx] = out.Revenue[idx].Add(inv.Total)
	}
	for _, exp := range expenses {
		idx := b.MonthIndex(exp.At)
		out.Expenses[idx] = out.Expenses[idx].Add(exp.Amount)
	}
	return out
}

func newComparative(year int) AnnualComparative {
	out := AnnualComparative{Year: year, Labels: MonthLabels}
	for i := range out.Revenue {
		out.Revenue[i] = decimal.Zero
		out.Expenses[i] = decimal.Zero
	}
	return out
}

func (e *Engine) emptyComparative(ctx context.Context, orgID uuid.UUID, year int, err error) AnnualComparative {
	out := newComparative(year)
	e.degrade(ctx, ReportAnnualComparative, orgID, &out.Health, err)
	return out
}

// ExpenseCategories totals every expense by category, largest first.
func (e *Engine) ExpenseCategories(ctx context.Context, orgID uuid.UUID) ExpenseCategories {
	b := e.Bucketer(ctx, orgID)
	out := ExpenseCategories{Categories: []CategoryTotal{}}

	expenses, err := e.loadExpenses(ctx, ReportExpenseCategories, b, ledger.ExpenseFilter{OrganizationID: orgID}, &out.Health)
	if err != nil {
		out = ExpenseCategories{Categories: []CategoryTotal{}}
		e.degrade(ctx, ReportExpenseCategories, orgID, &out.Health, err)
		return out
	}

	totals := make(map[string]decimal.Decimal)
	for _, exp := range expenses {
		label := strings.TrimSpace(exp.Category)
		if label == "" {
			label = UncategorizedLabel
		}
		totals[label] = totals[label].Add(exp.Amount)
	}
	for label, total := range totals {
		out.Categories = append(out.Categories, CategoryTotal{Category: label, Total: total})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, c := out.Categories[i], out.Categories[j]
		if cmp := a.Total.Cmp(c.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Category < c.Category
	})
	return out
}

// TopClients ranks customers by paid revenue. A non-positive limit uses the
// organization setting.
func (e *Engine) TopClients(ctx context.Context, orgID uuid.UUID, limit int) TopClients {
	st := e.Settings(ctx, orgID)
	b := e.bucketer(st)
	if limit <= 0 {
		limit = st.TopClients
	}
	out := TopClients{Clients: []ClientTotal{}}

	paid, err := e.loadInvoices(ctx, ReportTopClients, b, ledger.InvoiceFilter{OrganizationID: orgID, Statuses: paidOnly}, &out.Health)
	if err != nil {
		out = TopClients{Clients: []ClientTotal{}}
		e.degrade(ctx, ReportTopClients, orgID, &out.Health, err)
		return out
	}

	type group struct {
		ClientTotal
		latest datedInvoice
	}
	groups := make(map[string]*group)
	for _, inv := range paid {
		key := inv.ClientKey()
		g, ok := groups[key]
		if !ok {
			g = &group{ClientTotal: ClientTotal{Key: key}, latest: inv}
			groups[key] = g
		}
		g.Total = g.Total.Add(inv.Total)
		g.Invoices++
		if inv.At.After(g.latest.At) {
			g.latest = inv
		}
	}
	for _, g := range groups {
		g.Name = g.latest.CustomerName()
		out.Clients = append(out.Clients, g.ClientTotal)
	}
	sort.Slice(out.Clients, func(i, j int) bool {
		a, c := out.Clients[i], out.Clients[j]
		if cmp := a.Total.Cmp(c.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Key < c.Key
	})
	if len(out.Clients) > limit {
		out.Clients = out.Clients[:limit]
	}
	return out
}
