package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Diony-dev/Veloce/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the record does not exist within the organization.
	ErrNotFound = fmt.Errorf("ledger: %w", httpx.ErrNotFound)
	// ErrDuplicate indicates a uniqueness violation, typically an invoice number.
	ErrDuplicate = fmt.Errorf("ledger: %w", httpx.ErrDuplicate)
	// ErrValidation wraps invalid input.
	ErrValidation = fmt.Errorf("ledger: %w", httpx.ErrValidation)
	// ErrMissingOrganization is returned for queries without a tenant scope.
	ErrMissingOrganization = fmt.Errorf("ledger: organization id required: %w", httpx.ErrValidation)
)

// InvoiceFilter scopes invoice queries. From and To are inclusive and only
// constrain native timestamps; records with raw or missing dates are always
// returned so callers can resolve them.
type InvoiceFilter struct {
	OrganizationID uuid.UUID
	Statuses       []InvoiceStatus
	From           time.Time
	To             time.Time
	Search         string
	Limit          int
	Offset         int
}

// Validate checks the tenant scope.
func (f InvoiceFilter) Validate() error {
	if f.OrganizationID == uuid.Nil {
		return ErrMissingOrganization
	}
	return nil
}

// ExpenseFilter scopes expense queries with the same date semantics as
// InvoiceFilter.
type ExpenseFilter struct {
	OrganizationID uuid.UUID
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

// Validate checks the tenant scope.
func (f ExpenseFilter) Validate() error {
	if f.OrganizationID == uuid.Nil {
		return ErrMissingOrganization
	}
	return nil
}

// InWindow reports whether ts passes an inclusive [from, to] filter. Raw and
// missing timestamps always pass.
func InWindow(ts Timestamp, from, to time.Time) bool {
	at, ok := ts.Time()
	if !ok {
		return true
	}
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && at.After(to) {
		return false
	}
	return true
}

// Reader is the read side of the ledger.
type Reader interface {
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	CountInvoices(ctx context.Context, filter InvoiceFilter) (int, error)
	GetInvoice(ctx context.Context, orgID, id uuid.UUID) (Invoice, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (Organization, error)
	ActiveOrganizations(ctx context.Context) ([]uuid.UUID, error)
}

// Writer is the write side of the ledger.
type Writer interface {
	CreateInvoice(ctx context.Context, inv Invoice) error
	UpdateInvoiceStatus(ctx context.Context, orgID, id uuid.UUID, status InvoiceStatus) error
	DeleteInvoice(ctx context.Context, orgID, id uuid.UUID) error
	CreateExpense(ctx context.Context, exp Expense) error
	DeleteExpense(ctx context.Context, orgID, id uuid.UUID) error
	SaveOrganization(ctx context.Context, org Organization) error
}

// Store combines both sides.
type Store interface {
	Reader
	Writer
}
