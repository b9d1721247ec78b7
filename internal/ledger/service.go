package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const numberAttempts = 3

// Invalidator drops cached report state after a ledger write.
type Invalidator interface {
	Bump(ctx context.Context, orgID uuid.UUID) error
}

// ServiceConfig tunes the ledger service.
type ServiceConfig struct {
	NumberPrefix    string
	DefaultLocation *time.Location
	Logger          *slog.Logger
	Invalidator     Invalidator
}

// Service applies creation rules on top of a Store.
type Service struct {
	store       Store
	prefix      string
	location    *time.Location
	logger      *slog.Logger
	invalidator Invalidator
	now         func() time.Time
	suffix      func() int
}

// NewService wires the ledger service.
func NewService(store Store, cfg ServiceConfig) *Service {
	prefix := strings.TrimSpace(cfg.NumberPrefix)
	if prefix == "" {
		prefix = "F"
	}
	loc := cfg.DefaultLocation
	if loc == nil {
		loc = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		prefix:      prefix,
		location:    loc,
		logger:      logger,
		invalidator: cfg.Invalidator,
		now:         time.Now,
		suffix:      func() int { return 100 + rand.Intn(900) },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// LineItemInput is a requested invoice row.
type LineItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	ProductID   string
}

// CreateInvoiceInput collects the fields of a new sale.
type CreateInvoiceInput struct {
	OrganizationID uuid.UUID
	Seller         string
	Customer       CustomerRef
	CustomerID     string
	Items          []LineItemInput
	Status         InvoiceStatus
	PaymentMethod  PaymentMethod
	IssuedAt       time.Time
}

// CreateInvoice computes line totals, assigns a number and persists the sale.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if input.OrganizationID == uuid.Nil {
		return Invoice{}, ErrMissingOrganization
	}
	if len(input.Items) == 0 {
		return Invoice{}, fmt.Errorf("%w: at least one line item required", ErrValidation)
	}
	items := make([]LineItem, 0, len(input.Items))
	total := decimal.Zero
	for i, in := range input.Items {
		if in.Quantity <= 0 {
			return Invoice{}, fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i+1)
		}
		if in.UnitPrice.IsNegative() {
			return Invoice{}, fmt.Errorf("%w: item %d unit price must not be negative", ErrValidation, i+1)
		}
		item := LineItem{
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			ProductID:   strings.TrimSpace(in.ProductID),
		}
		item.Total = item.ComputeTotal()
		total = total.Add(item.Total)
		items = append(items, item)
	}

	status := input.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return Invoice{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	method := PaymentMethod(strings.TrimSpace(string(input.PaymentMethod)))
	if method == "" {
		method = PaymentCash
	}

	now := s.now()
	issued := input.IssuedAt
	if issued.IsZero() {
		issued = now
	}

	inv := Invoice{
		OrganizationID: input.OrganizationID,
		Seller:         strings.TrimSpace(input.Seller),
		Customer:       input.Customer.Normalize(),
		CustomerID:     strings.TrimSpace(input.CustomerID),
		Items:          items,
		Total:          total,
		Status:         status,
		PaymentMethod:  method,
		IssuedAt:       At(issued),
		CreatedAt:      now,
	}

	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		inv.ID = uuid.New()
		inv.Number = s.nextNumber(now)
		err = s.store.CreateInvoice(ctx, inv)
		if !errors.Is(err, ErrDuplicate) {
			break
		}
		s.logger.Warn("invoice number collision", slog.String("number", inv.Number), slog.Int("attempt", attempt+1))
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("ledger: create invoice: %w", err)
	}
	s.invalidate(ctx, inv.OrganizationID)
	return inv, nil
}

func (s *Service) nextNumber(now time.Time) string {
	return fmt.Sprintf("%s-%d%d", s.prefix, now.Unix(), s.suffix())
}

// UpdateInvoiceStatus moves an invoice to a new status.
func (s *Service) UpdateInvoiceStatus(ctx context.Context, orgID, id uuid.UUID, status InvoiceStatus) error {
	if orgID == uuid.Nil {
		return ErrMissingOrganization
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if err := s.store.UpdateInvoiceStatus(ctx, orgID, id, status); err != nil {
		return fmt.Errorf("ledger: update status: %w", err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

// DeleteInvoice hard deletes an invoice.
func (s *Service) DeleteInvoice(ctx context.Context, orgID, id uuid.UUID) error {
	if orgID == uuid.Nil {
		return ErrMissingOrganization
	}
	if err := s.store.DeleteInvoice(ctx, orgID, id); err != nil {
		return fmt.Errorf("ledger: delete invoice: %w", err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

// GetInvoice loads one invoice.
func (s *Service) GetInvoice(ctx context.Context, orgID, id uuid.UUID) (Invoice, error) {
	return s.store.GetInvoice(ctx, orgID, id)
}

// ListInvoices returns a page of invoices and the unpaged total.
func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountInvoices(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	invoices, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// CreateExpenseInput collects the fields of a new expense. Amount and Date
// arrive as text and are coerced here.
type CreateExpenseInput struct {
	OrganizationID uuid.UUID
	Description    string
	Amount         string
	Category       string
	Date           string
	Vendor         string
	Receipt        string
	RecordedBy     string
}

// CreateExpense records an expense.
func (s *Service) CreateExpense(ctx context.Context, input CreateExpenseInput) (Expense, error) {
	if input.OrganizationID == uuid.Nil {
		return Expense{}, ErrMissingOrganization
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return Expense{}, fmt.Errorf("%w: description required", ErrValidation)
	}
	amount, err := ParseAmount(input.Amount)
	if err != nil {
		return Expense{}, err
	}
	now := s.now()
	date, err := s.expenseDate(ctx, input.OrganizationID, input.Date, now)
	if err != nil {
		return Expense{}, err
	}
	exp := Expense{
		ID:             uuid.New(),
		OrganizationID: input.OrganizationID,
		Description:    description,
		Amount:         amount,
		Category:       strings.TrimSpace(input.Category),
		Date:           At(date),
		Vendor:         strings.TrimSpace(input.Vendor),
		Receipt:        strings.TrimSpace(input.Receipt),
		RecordedBy:     strings.TrimSpace(input.RecordedBy),
		CreatedAt:      now,
	}
	if err := s.store.CreateExpense(ctx, exp); err != nil {
		return Expense{}, fmt.Errorf("ledger: create expense: %w", err)
	}
	s.invalidate(ctx, exp.OrganizationID)
	return exp, nil
}

func (s *Service) expenseDate(ctx context.Context, orgID uuid.UUID, value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, s.organizationLocation(ctx, orgID))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return t, nil
}

func (s *Service) organizationLocation(ctx context.Context, orgID uuid.UUID) *time.Location {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("load organization settings", slog.String("organization_id", orgID.String()), slog.Any("error", err))
		}
		return s.location
	}
	return org.Location(s.location)
}

// DeleteExpense hard deletes an expense.
func (s *Service) DeleteExpense(ctx context.Context, orgID, id uuid.UUID) error {
	if orgID == uuid.Nil {
		return ErrMissingOrganization
	}
	if err := s.store.DeleteExpense(ctx, orgID, id); err != nil {
		return fmt.Errorf("ledger: delete expense: %w", err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

// ListExpenses returns expenses matching filter.
func (s *Service) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, filter)
}

// Organization returns the settings row, or an unsaved default when missing.
func (s *Service) Organization(ctx context.Context, orgID uuid.UUID) (Organization, error) {
	if orgID == uuid.Nil {
		return Organization{}, ErrMissingOrganization
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if errors.Is(err, ErrNotFound) {
		return Organization{ID: orgID}, nil
	}
	return org, err
}

// SaveOrganization validates and stores organization settings.
func (s *Service) SaveOrganization(ctx context.Context, org Organization) (Organization, error) {
	if org.ID == uuid.Nil {
		return Organization{}, ErrMissingOrganization
	}
	org.Timezone = strings.TrimSpace(org.Timezone)
	if org.Timezone != "" {
		if _, err := time.LoadLocation(org.Timezone); err != nil {
			return Organization{}, fmt.Errorf("%w: unknown time zone %q", ErrValidation, org.Timezone)
		}
	}
	if org.TaxRate.Valid && (org.TaxRate.Decimal.IsNegative() || org.TaxRate.Decimal.GreaterThanOrEqual(decimal.NewFromInt(1))) {
		return Organization{}, fmt.Errorf("%w: tax rate must be in [0, 1)", ErrValidation)
	}
	if org.OverdueAfterDays != nil && *org.OverdueAfterDays < 0 {
		return Organization{}, fmt.Errorf("%w: overdue threshold must not be negative", ErrValidation)
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = s.now()
	}
	if err := s.store.SaveOrganization(ctx, org); err != nil {
		return Organization{}, fmt.Errorf("ledger: save organization: %w", err)
	}
	s.invalidate(ctx, org.ID)
	return org, nil
}

func (s *Service) invalidate(ctx context.Context, orgID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx, orgID); err != nil {
		s.logger.Warn("invalidate report cache", slog.String("organization_id", orgID.String()), slog.Any("error", err))
	}
}

// ParseAmount coerces a text amount. Empty input is zero.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrValidation, value)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	return amount, nil
}
