package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Report names, used in logs and metrics.
const (
	ReportMonthlyKPIs        = "monthly_kpis"
	ReportAnnualComparative  = "annual_comparative"
	ReportExpenseCategories  = "expense_categories"
	ReportTopClients         = "top_clients"
	ReportReceivables        = "receivables"
	ReportFiscal             = "fiscal"
	ReportSalesRange         = "sales_range"
	ReportExpenseRange       = "expense_range"
	ReportCashReconciliation = "cash_reconciliation"
)

// UncategorizedLabel groups expenses without a category.
const UncategorizedLabel = "Uncategorized"

// MonthLabels are the comparative chart labels, January first.
var MonthLabels = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// Health flags results built from incomplete data.
type Health struct {
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}

func (h *Health) warn(msg string) {
	h.Warnings = append(h.Warnings, msg)
}

// MonthlyKPIs summarizes the current calendar month.
type MonthlyKPIs struct {
	Health
	Month        string          `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	Expenses     decimal.Decimal `json:"expenses"`
	Net          decimal.Decimal `json:"net"`
	PendingCount int             `json:"pending_count"`
}

// AnnualComparative holds twelve monthly buckets per series.
type AnnualComparative struct {
	Health
	Year     int                 `json:"year"`
	Labels   [12]string          `json:"labels"`
	Revenue  [12]decimal.Decimal `json:"revenue"`
	Expenses [12]decimal.Decimal `json:"expenses"`
}

// CategoryTotal is one expense category bucket.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ExpenseCategories ranks expense categories by spend.
type ExpenseCategories struct {
	Health
	Categories []CategoryTotal `json:"categories"`
}

// ClientTotal is one ranked customer.
type ClientTotal struct {
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Invoices int             `json:"invoices"`
}

// TopClients ranks customers by paid revenue.
type TopClients struct {
	Health
	Clients []ClientTotal `json:"clients"`
}

// Receivable is one open invoice with its age.
type Receivable struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	Customer    string          `json:"customer"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	IssuedAt    time.Time       `json:"issued_at"`
	DaysOverdue float64         `json:"days_overdue"`
}

// Receivables lists open invoices oldest first.
type Receivables struct {
	Health
	AsOf     time.Time       `json:"as_of"`
	Items    []Receivable    `json:"items"`
	TotalDue decimal.Decimal `json:"total_due"`
}

// FiscalRow splits one paid invoice into taxable base and tax.
type FiscalRow struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Date      time.Time       `json:"date"`
	Number    string          `json:"number"`
	Customer  string          `json:"customer"`
	Total     decimal.Decimal `json:"total"`
	Base      decimal.Decimal `json:"base"`
	Tax       decimal.Decimal `json:"tax"`
}

// FiscalSummary is the tax report of a date range.
type FiscalSummary struct {
	Health
	Start     string          `json:"start"`
	End       string          `json:"end"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Rows      []FiscalRow     `json:"rows"`
	TotalSold decimal.Decimal `json:"total_sold"`
	TotalBase decimal.Decimal `json:"total_base"`
	TotalTax  decimal.Decimal `json:"total_tax"`
}

// DailySales aggregates paid invoices of one day.
type DailySales struct {
	Day      string          `json:"day"`
	Total    decimal.Decimal `json:"total"`
	Invoices int             `json:"invoices"`
}

// SalesRange lists daily sales of a date range.
type SalesRange struct {
	Health
	Start string          `json:"start"`
	End   string          `json:"end"`
	Days  []DailySales    `json:"days"`
	Total decimal.Decimal `json:"total"`
}

// ExpenseLine is one expense in a listing.
type ExpenseLine struct {
	ExpenseID   uuid.UUID       `json:"expense_id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Vendor      string          `json:"vendor,omitempty"`
	RecordedBy  string          `json:"recorded_by,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// ExpenseRange lists expenses of a date range oldest first.
type ExpenseRange struct {
	Health
	Start    string          `json:"start"`
	End      string          `json:"end"`
	Expenses []ExpenseLine   `json:"expenses"`
	Total    decimal.Decimal `json:"total"`
}

// IncomeEntry is a paid invoice in the daily reconciliation.
type IncomeEntry struct {
	Time          string          `json:"time"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Number        string          `json:"number"`
	Customer      string          `json:"customer"`
	Seller        string          `json:"seller"`
	PaymentMethod string          `json:"payment_method"`
	Cash          bool            `json:"cash"`
	Total         decimal.Decimal `json:"total"`
}

// OutflowEntry is an expense in the daily reconciliation.
type OutflowEntry struct {
	Time        string          `json:"time"`
	ExpenseID   uuid.UUID       `json:"expense_id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	RecordedBy  string          `json:"recorded_by"`
	Amount      decimal.Decimal `json:"amount"`
}

// ReconciliationSummary holds the totals of a reconciliation day.
type ReconciliationSummary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	CashTotal     decimal.Decimal `json:"cash_total"`
	BankTotal     decimal.Decimal `json:"bank_total"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Net           decimal.Decimal `json:"net"`
	SalesCount    int             `json:"sales_count"`
	ExpenseCount  int             `json:"expense_count"`
}

// CashReconciliation is the daily cash versus bank report.
type CashReconciliation struct {
	Health
	Date     string                `json:"date"`
	Income   []IncomeEntry         `json:"income"`
	Outflows []OutflowEntry        `json:"outflows"`
	Summary  ReconciliationSummary `json:"summary"`
}

// Dashboard assembles the four dashboard reports.
type Dashboard struct {
	OrganizationID uuid.UUID         `json:"organization_id"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Degraded       bool              `json:"degraded"`
	KPIs           MonthlyKPIs       `json:"kpis"`
	Comparative    AnnualComparative `json:"comparative"`
	Categories     ExpenseCategories `json:"categories"`
	TopClients     TopClients        `json:"top_clients"`
}

// Cacheable reports whether the dashboard was built from complete data.
func (d Dashboard) Cacheable() bool {
	return !d.Degraded
}
