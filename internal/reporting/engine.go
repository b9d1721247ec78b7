// Package reporting computes the financial reports of an organization from
// ledger records. Builders never fail: on store errors they return an empty
// result flagged as degraded.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

// Recorder counts degraded report builds.
type Recorder interface {
	ReportDegraded(report string)
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Reader   ledger.Reader
	Defaults Defaults
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Engine runs the report builders over a ledger reader.
type Engine struct {
	reader   ledger.Reader
	defaults Defaults
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	defaults := cfg.Defaults
	if defaults.Location == nil {
		defaults.Location = time.UTC
	}
	return &Engine{
		reader:   cfg.Reader,
		defaults: defaults,
		logger:   logger,
		recorder: cfg.Recorder,
		now:      now,
	}
}

// Settings loads the effective settings of an organization. Lookup failures
// fall back to the defaults.
func (e *Engine) Settings(ctx context.Context, orgID uuid.UUID) Settings {
	org, err := e.reader.GetOrganization(ctx, orgID)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			e.logger.WarnContext(ctx, "load organization settings", slog.String("organization_id", orgID.String()), slog.Any("error", err))
		}
		return e.defaults.Resolve(ledger.Organization{ID: orgID})
	}
	return e.defaults.Resolve(org)
}

// Bucketer returns the date bucketer of an organization.
func (e *Engine) Bucketer(ctx context.Context, orgID uuid.UUID) Bucketer {
	return e.bucketer(e.Settings(ctx, orgID))
}

func (e *Engine) bucketer(st Settings) Bucketer {
	return NewBucketer(st.Location, e.now)
}

func (e *Engine) degrade(ctx context.Context, report string, orgID uuid.UUID, h *Health, err error) {
	h.Degraded = true
	h.warn("ledger query failed; showing empty result")
	e.logger.WarnContext(ctx, "report degraded",
		slog.String("report", report),
		slog.String("organization_id", orgID.String()),
		slog.Any("error", err),
	)
	if e.recorder != nil {
		e.recorder.ReportDegraded(report)
	}
}

type datedInvoice struct {
	ledger.Invoice
	At time.Time
}

type datedExpense struct {
	ledger.Expense
	At time.Time
}

// loadInvoices lists invoices and re-applies tenant, status and window checks
// after resolving every timestamp in the organization zone.
func (e *Engine) loadInvoices(ctx context.Context, report string, b Bucketer, filter ledger.InvoiceFilter, h *Health) ([]datedInvoice, error) {
	if filter.OrganizationID == uuid.Nil {
		return nil, ledger.ErrMissingOrganization
	}
	invoices, err := e.reader.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]datedInvoice, 0, len(invoices))
	foreign, unresolved := 0, 0
	for _, inv := range invoices {
		if inv.OrganizationID != filter.OrganizationID {
			foreign++
			continue
		}
		if len(filter.Statuses) > 0 && !inv.Status.In(filter.Statuses) {
			continue
		}
		at, ok := b.Resolve(inv.IssuedAt)
		if !ok {
			unresolved++
		}
		if !inWindow(at, filter.From, filter.To) {
			continue
		}
		out = append(out, datedInvoice{Invoice: inv, At: at})
	}
	e.noteAnomalies(ctx, report, filter.OrganizationID, "invoices", foreign, unresolved, h)
	return out, nil
}

func (e *Engine) loadExpenses(ctx context.Context, report string, b Bucketer, filter ledger.ExpenseFilter, h *Health) ([]datedExpense, error) {
	if filter.OrganizationID == uuid.Nil {
		return nil, ledger.ErrMissingOrganization
	}
	expenses, err := e.reader.ListExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]datedExpense, 0, len(expenses))
	foreign, unresolved := 0, 0
	for _, exp := range expenses {
		if exp.OrganizationID != filter.OrganizationID {
			foreign++
			continue
		}
		at, ok := b.Resolve(exp.Date)
		if !ok {
			unresolved++
		}
		if !inWindow(at, filter.From, filter.To) {
			continue
		}
		out = append(out, datedExpense{Expense: exp, At: at})
	}
	e.noteAnomalies(ctx, report, filter.OrganizationID, "expenses", foreign, unresolved, h)
	return out, nil
}

func (e *Engine) noteAnomalies(ctx context.Context, report string, orgID uuid.UUID, kind string, foreign, unresolved int, h *Health) {
	if foreign > 0 {
		e.logger.ErrorContext(ctx, "store returned records of another organization",
			slog.String("report", report),
			slog.String("organization_id", orgID.String()),
			slog.String("kind", kind),
			slog.Int("count", foreign),
		)
	}
	if unresolved > 0 {
		h.warn(fmt.Sprintf("%d %s with unreadable dates were counted at processing time", unresolved, kind))
		e.logger.WarnContext(ctx, "unparseable record dates",
			slog.String("report", report),
			slog.String("organization_id", orgID.String()),
			slog.String("kind", kind),
			slog.Int("count", unresolved),
		)
	}
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
