// Package memory implements the ledger store in process, for development
// and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

// Store keeps ledger records in maps guarded by a RWMutex.
type Store struct {
	mu            sync.RWMutex
	invoices      map[uuid.UUID]ledger.Invoice
	expenses      map[uuid.UUID]ledger.Expense
	organizations map[uuid.UUID]ledger.Organization
	numbers       map[string]uuid.UUID
}

var _ ledger.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		invoices:      make(map[uuid.UUID]ledger.Invoice),
		expenses:      make(map[uuid.UUID]ledger.Expense),
		organizations: make(map[uuid.UUID]ledger.Organization),
		numbers:       make(map[string]uuid.UUID),
	}
}

func numberKey(orgID uuid.UUID, number string) string {
	return orgID.String() + "/" + number
}

func (s *Store) CreateInvoice(_ context.Context, inv ledger.Invoice) error {
	if inv.OrganizationID == uuid.Nil {
		return ledger.ErrMissingOrganization
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invoices[inv.ID]; exists {
		return ledger.ErrDuplicate
	}
	key := numberKey(inv.OrganizationID, inv.Number)
	if _, exists := s.numbers[key]; exists {
		return ledger.ErrDuplicate
	}
	inv.Items = append([]ledger.LineItem(nil), inv.Items...)
	s.invoices[inv.ID] = inv
	s.numbers[key] = inv.ID
	return nil
}

func (s *Store) UpdateInvoiceStatus(_ context.Context, orgID, id uuid.UUID, status ledger.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.OrganizationID != orgID {
		return ledger.ErrNotFound
	}
	inv.Status = status
	s.invoices[id] = inv
	return nil
}

func (s *Store) DeleteInvoice(_ context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.OrganizationID != orgID {
		return ledger.ErrNotFound
	}
	delete(s.invoices, id)
	delete(s.numbers, numberKey(orgID, inv.Number))
	return nil
}

func (s *Store) GetInvoice(_ context.Context, orgID, id uuid.UUID) (ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok || inv.OrganizationID != orgID {
		return ledger.Invoice{}, ledger.ErrNotFound
	}
	return inv, nil
}

func (s *Store) ListInvoices(_ context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	matched := s.matchInvoices(filter)
	return page(matched, filter.Limit, filter.Offset), nil
}

func (s *Store) CountInvoices(_ context.Context, filter ledger.InvoiceFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	return len(s.matchInvoices(filter)), nil
}

func (s *Store) matchInvoices(filter ledger.InvoiceFilter) []ledger.Invoice {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	s.mu.RLock()
	out := make([]ledger.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.OrganizationID != filter.OrganizationID {
			continue
		}
		if len(filter.Statuses) > 0 && !inv.Status.In(filter.Statuses) {
			continue
		}
		if !ledger.InWindow(inv.IssuedAt, filter.From, filter.To) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(inv.CustomerName()), search) &&
			!strings.Contains(strings.ToLower(inv.Number), search) {
			continue
		}
		out = append(out, inv)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) CreateExpense(_ context.Context, exp ledger.Expense) error {
	if exp.OrganizationID == uuid.Nil {
		return ledger.ErrMissingOrganization
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.expenses[exp.ID]; exists {
		return ledger.ErrDuplicate
	}
	s.expenses[exp.ID] = exp
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expenses[id]
	if !ok || exp.OrganizationID != orgID {
		return ledger.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, filter ledger.ExpenseFilter) ([]ledger.Expense, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]ledger.Expense, 0)
	for _, exp := range s.expenses {
		if exp.OrganizationID != filter.OrganizationID {
			continue
		}
		if !ledger.InWindow(exp.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, exp)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *Store) GetOrganization(_ context.Context, id uuid.UUID) (ledger.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return ledger.Organization{}, ledger.ErrNotFound
	}
	return org, nil
}

func (s *Store) SaveOrganization(_ context.Context, org ledger.Organization) error {
	if org.ID == uuid.Nil {
		return ledger.ErrMissingOrganization
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.organizations[org.ID]; ok && !existing.CreatedAt.IsZero() {
		org.CreatedAt = existing.CreatedAt
	}
	s.organizations[org.ID] = org
	return nil
}

func (s *Store) ActiveOrganizations(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	seen := make(map[uuid.UUID]struct{})
	for id := range s.organizations {
		seen[id] = struct{}{}
	}
	for _, inv := range s.invoices {
		seen[inv.OrganizationID] = struct{}{}
	}
	for _, exp := range s.expenses {
		seen[exp.OrganizationID] = struct{}{}
	}
	s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
