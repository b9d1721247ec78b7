package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the stored lifecycle label of an invoice. Values are
// compared exactly; "pagado" and "Pagado" are different statuses.
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "Borrador"
	StatusPending InvoiceStatus = "Pendiente"
	StatusSent    InvoiceStatus = "Enviado"
	StatusPaid    InvoiceStatus = "Pagado"
	StatusOverdue InvoiceStatus = "Vencido"
)

var (
	// ReceivableStatuses are the statuses still owed by the customer.
	ReceivableStatuses = []InvoiceStatus{StatusPending, StatusSent, StatusOverdue}
	// UnpaidStatuses feed the dashboard pending counter.
	UnpaidStatuses = []InvoiceStatus{StatusSent, StatusOverdue, StatusDraft, StatusPending}
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// In reports whether s is contained in set.
func (s InvoiceStatus) In(set []InvoiceStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// PaymentMethod is the free-form payment label captured at sale time.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "efectivo"
	PaymentTransfer PaymentMethod = "transferencia"
	PaymentCard     PaymentMethod = "tarjeta"
)

// IsCash reports whether the payment settles in the cash drawer. Missing
// labels count as cash.
func (m PaymentMethod) IsCash() bool {
	label := strings.TrimSpace(string(m))
	return label == "" || PaymentMethod(label) == PaymentCash
}

// LineItem is a single invoice row.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	ProductID   string          `json:"product_id,omitempty"`
}

// ComputeTotal returns quantity × unit price.
func (l LineItem) ComputeTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Invoice is one sale.
type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	Number         string          `json:"number"`
	Seller         string          `json:"seller,omitempty"`
	Customer       CustomerRef     `json:"customer"`
	CustomerID     string          `json:"customer_id,omitempty"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Status         InvoiceStatus   `json:"status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	IssuedAt       Timestamp       `json:"issued_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CustomerName resolves the display name of the invoice customer.
func (inv Invoice) CustomerName() string {
	return inv.Customer.DisplayName()
}

// ClientKey is the grouping key used to merge invoices of the same customer.
// A linked customer id wins; otherwise the embedded reference itself is the key.
func (inv Invoice) ClientKey() string {
	if id := strings.TrimSpace(inv.CustomerID); id != "" {
		return "id:" + id
	}
	return inv.Customer.Key()
}

// Expense is an outflow recorded against an organization.
type Expense struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category,omitempty"`
	Date           Timestamp       `json:"date"`
	Vendor         string          `json:"vendor,omitempty"`
	Receipt        string          `json:"receipt,omitempty"`
	RecordedBy     string          `json:"recorded_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Organization carries tenant level settings. Empty values defer to the
// process wide defaults. OverdueAfterDays is nil when unset; an explicit 0
// turns the overdue sweep off for the organization.
type Organization struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Timezone         string              `json:"timezone,omitempty"`
	TaxRate          decimal.NullDecimal `json:"tax_rate"`
	OverdueAfterDays *int                `json:"overdue_after_days"`
	Currency         string              `json:"currency,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// OverdueDays returns a threshold override for Organization.OverdueAfterDays.
func OverdueDays(days int) *int {
	return &days
}

// Location returns the organization time zone, or fallback when unset or unknown.
func (o Organization) Location(fallback *time.Location) *time.Location {
	if name := strings.TrimSpace(o.Timezone); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}
