// Package postgres persists the ledger in PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/platform/db"
)

//go:embed schema.sql
var schema string

// Store is the PostgreSQL ledger store.
type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)

// NewStore constructs a store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the ledger tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("ledger/postgres: migrate: %w", err)
	}
	return nil
}

const invoiceColumns = `id, organization_id, number, seller, customer, customer_id, items, total::text, status, payment_method, issued_at, issued_at_raw, created_at`

func (s *Store) CreateInvoice(ctx context.Context, inv ledger.Invoice) error {
	customer, err := json.Marshal(inv.Customer)
	if err != nil {
		return fmt.Errorf("ledger/postgres: encode customer: %w", err)
	}
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("ledger/postgres: encode items: %w", err)
	}
	issuedAt, issuedRaw := timestampParams(inv.IssuedAt)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO invoices (
			id, organization_id, number, seller, customer, customer_id, items,
			total, status, payment_method, issued_at, issued_at_raw, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13)`,
		inv.ID, inv.OrganizationID, inv.Number, inv.Seller, customer, inv.CustomerID, items,
		inv.Total.String(), string(inv.Status), string(inv.PaymentMethod), issuedAt, issuedRaw, inv.CreatedAt,
	)
	return translateError(err)
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, orgID, id uuid.UUID, status ledger.InvoiceStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE invoices SET status = $3 WHERE organization_id = $1 AND id = $2`, orgID, id, string(status))
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, orgID, id uuid.UUID) (ledger.Invoice, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE organization_id = $1 AND id = $2`, orgID, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Invoice{}, ledger.ErrNotFound
	}
	return inv, err
}

func (s *Store) ListInvoices(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	where, args := invoiceWhere(filter)
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where + ` ORDER BY created_at DESC, id`
	query, args = appendPage(query, args, filter.Limit, filter.Offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]ledger.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/postgres: list invoices: %w", err)
	}
	return invoices, nil
}

func (s *Store) CountInvoices(ctx context.Context, filter ledger.InvoiceFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	where, args := invoiceWhere(filter)
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ledger/postgres: count invoices: %w", err)
	}
	return total, nil
}

// invoiceWhere renders the filter predicates. Rows without a native
// issued_at always match the date bounds.
func invoiceWhere(filter ledger.InvoiceFilter) (string, []any) {
	clauses := []string{"organization_id = $1"}
	args := []any{filter.OrganizationID}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		clauses = append(clauses, "status = ANY("+next(statuses)+")")
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "(issued_at IS NULL OR issued_at >= "+next(filter.From)+")")
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "(issued_at IS NULL OR issued_at <= "+next(filter.To)+")")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := next("%" + search + "%")
		clauses = append(clauses, "(customer::text ILIKE "+p+" OR number ILIKE "+p+")")
	}
	return strings.Join(clauses, " AND "), args
}

func appendPage(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func scanInvoice(row pgx.Row) (ledger.Invoice, error) {
	var (
		inv       ledger.Invoice
		customer  []byte
		items     []byte
		total     string
		status    string
		method    string
		issuedAt  pgtype.Timestamptz
		issuedRaw pgtype.Text
	)
	if err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.Number, &inv.Seller, &customer, &inv.CustomerID,
		&items, &total, &status, &method, &issuedAt, &issuedRaw, &inv.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Invoice{}, err
		}
		return ledger.Invoice{}, fmt.Errorf("ledger/postgres: scan invoice: %w", err)
	}
	if len(customer) > 0 {
		_ = inv.Customer.UnmarshalJSON(customer)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return ledger.Invoice{}, fmt.Errorf("ledger/postgres: decode items for %s: %w", inv.Number, err)
		}
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return ledger.Invoice{}, fmt.Errorf("ledger/postgres: decode total for %s: %w", inv.Number, err)
	}
	inv.Total = amount
	inv.Status = ledger.InvoiceStatus(status)
	inv.PaymentMethod = ledger.PaymentMethod(method)
	inv.IssuedAt = timestampValue(issuedAt, issuedRaw)
	return inv, nil
}

const expenseColumns = `id, organization_id, description, amount::text, category, spent_at, spent_at_raw, vendor, receipt, recorded_by, created_at`

func (s *Store) CreateExpense(ctx context.Context, exp ledger.Expense) error {
	spentAt, spentRaw := timestampParams(exp.Date)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO expenses (
			id, organization_id, description, amount, category, spent_at, spent_at_raw,
			vendor, receipt, recorded_by, created_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)`,
		exp.ID, exp.OrganizationID, exp.Description, exp.Amount.String(), exp.Category, spentAt, spentRaw,
		exp.Vendor, exp.Receipt, exp.RecordedBy, exp.CreatedAt,
	)
	return translateError(err)
}

func (s *Store) DeleteExpense(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, filter ledger.ExpenseFilter) ([]ledger.Expense, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	where, args := expenseWhere(filter)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY created_at DESC, id`
	query, args = appendPage(query, args, filter.Limit, filter.Offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]ledger.Expense, 0)
	for rows.Next() {
		var (
			exp      ledger.Expense
			amount   string
			spentAt  pgtype.Timestamptz
			spentRaw pgtype.Text
		)
		if err := rows.Scan(&exp.ID, &exp.OrganizationID, &exp.Description, &amount, &exp.Category,
			&spentAt, &spentRaw, &exp.Vendor, &exp.Receipt, &exp.RecordedBy, &exp.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger/postgres: scan expense: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("ledger/postgres: decode amount for %s: %w", exp.ID, err)
		}
		exp.Amount = value
		exp.Date = timestampValue(spentAt, spentRaw)
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/postgres: list expenses: %w", err)
	}
	return expenses, nil
}

func expenseWhere(filter ledger.ExpenseFilter) (string, []any) {
	clauses := []string{"organization_id = $1"}
	args := []any{filter.OrganizationID}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("(spent_at IS NULL OR spent_at >= $%d)", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("(spent_at IS NULL OR spent_at <= $%d)", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (ledger.Organization, error) {
	var (
		org     ledger.Organization
		taxRate pgtype.Text
		overdue pgtype.Int4
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, timezone, tax_rate::text, overdue_after_days, currency, created_at
		FROM organizations WHERE id = $1`, id,
	).Scan(&org.ID, &org.Name, &org.Timezone, &taxRate, &overdue, &org.Currency, &org.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Organization{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Organization{}, fmt.Errorf("ledger/postgres: get organization: %w", err)
	}
	if taxRate.Valid {
		rate, err := decimal.NewFromString(taxRate.String)
		if err != nil {
			return ledger.Organization{}, fmt.Errorf("ledger/postgres: decode tax rate: %w", err)
		}
		org.TaxRate = decimal.NewNullDecimal(rate)
	}
	if overdue.Valid {
		org.OverdueAfterDays = ledger.OverdueDays(int(overdue.Int32))
	}
	return org, nil
}

func (s *Store) SaveOrganization(ctx context.Context, org ledger.Organization) error {
	var (
		taxRate pgtype.Text
		overdue pgtype.Int4
	)
	if org.TaxRate.Valid {
		taxRate = pgtype.Text{String: org.TaxRate.Decimal.String(), Valid: true}
	}
	if org.OverdueAfterDays != nil {
		overdue = pgtype.Int4{Int32: int32(*org.OverdueAfterDays), Valid: true}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, timezone, tax_rate, overdue_after_days, currency, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			tax_rate = EXCLUDED.tax_rate,
			overdue_after_days = EXCLUDED.overdue_after_days,
			currency = EXCLUDED.currency`,
		org.ID, org.Name, org.Timezone, taxRate, overdue, org.Currency, org.CreatedAt,
	)
	return translateError(err)
}

func (s *Store) ActiveOrganizations(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM organizations
		UNION SELECT DISTINCT organization_id FROM invoices
		UNION SELECT DISTINCT organization_id FROM expenses
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: active organizations: %w", err)
	}
	defer rows.Close()
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ledger/postgres: scan organization: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func timestampParams(ts ledger.Timestamp) (pgtype.Timestamptz, pgtype.Text) {
	if at, ok := ts.Time(); ok {
		return pgtype.Timestamptz{Time: at, Valid: true}, pgtype.Text{}
	}
	if raw := ts.Raw(); raw != "" {
		return pgtype.Timestamptz{}, pgtype.Text{String: raw, Valid: true}
	}
	return pgtype.Timestamptz{}, pgtype.Text{}
}

func timestampValue(at pgtype.Timestamptz, raw pgtype.Text) ledger.Timestamp {
	if raw.Valid && raw.String != "" {
		return ledger.RawTimestamp(raw.String)
	}
	if at.Valid {
		return ledger.At(at.Time)
	}
	return ledger.Timestamp{}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("ledger/postgres: %w", err)
}
