// Package ledgerhttp exposes invoice, expense and organization settings
// endpoints.
package ledgerhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/platform/httpx"
	"github.com/Diony-dev/Veloce/internal/shared"
	"github.com/Diony-dev/Veloce/internal/tenant"
)

const dayLayout = "2006-01-02"

// LedgerService is the ledger contract used by the handler.
type LedgerService interface {
	CreateInvoice(ctx context.Context, input ledger.CreateInvoiceInput) (ledger.Invoice, error)
	GetInvoice(ctx context.Context, orgID, id uuid.UUID) (ledger.Invoice, error)
	ListInvoices(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, int, error)
	UpdateInvoiceStatus(ctx context.Context, orgID, id uuid.UUID, status ledger.InvoiceStatus) error
	DeleteInvoice(ctx context.Context, orgID, id uuid.UUID) error
	CreateExpense(ctx context.Context, input ledger.CreateExpenseInput) (ledger.Expense, error)
	ListExpenses(ctx context.Context, filter ledger.ExpenseFilter) ([]ledger.Expense, error)
	DeleteExpense(ctx context.Context, orgID, id uuid.UUID) error
	Organization(ctx context.Context, orgID uuid.UUID) (ledger.Organization, error)
	SaveOrganization(ctx context.Context, org ledger.Organization) (ledger.Organization, error)
}

// Handler serves ledger endpoints for the authenticated organization.
type Handler struct {
	logger    *slog.Logger
	service   LedgerService
	validator *validator.Validate
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service LedgerService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes onto an authenticated router.
// Destructive routes additionally require the admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	admin := tenant.RequireRole(tenant.RoleAdmin)

	r.Route("/invoices", func(ir chi.Router) {
		ir.Get("/", h.listInvoices)
		ir.Post("/", h.createInvoice)
		ir.Get("/{id}", h.getInvoice)
		ir.Patch("/{id}/status", h.updateInvoiceStatus)
		ir.With(admin).Delete("/{id}", h.deleteInvoice)
	})
	r.Route("/expenses", func(er chi.Router) {
		er.Get("/", h.listExpenses)
		er.Post("/", h.createExpense)
		er.With(admin).Delete("/{id}", h.deleteExpense)
	})
	r.Get("/organization", h.getOrganization)
	r.With(admin).Put("/organization", h.saveOrganization)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.fail(w, r, "create invoice", err)
		return
	}
	input.OrganizationID = tenant.OrganizationID(r.Context())
	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := dayBounds(q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, "list invoices", err)
		return
	}
	statuses, err := parseStatuses(q["status"])
	if err != nil {
		h.fail(w, r, "list invoices", err)
		return
	}
	page, perPage := shared.PageFromRequest(r)
	filter := ledger.InvoiceFilter{
		OrganizationID: tenant.OrganizationID(r.Context()),
		Statuses:       statuses,
		From:           from,
		To:             to,
		Search:         strings.TrimSpace(q.Get("search")),
		Limit:          perPage,
		Offset:         shared.Offset(page, perPage),
	}
	invoices, total, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list invoices", err)
		return
	}
	if invoices == nil {
		invoices = []ledger.Invoice{}
	}
	httpx.JSON(w, http.StatusOK, invoiceList{Data: invoices, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), tenant.OrganizationID(r.Context()), id)
	if err != nil {
		h.fail(w, r, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	orgID := tenant.OrganizationID(r.Context())
	if err := h.service.UpdateInvoiceStatus(r.Context(), orgID, id, ledger.InvoiceStatus(req.Status)); err != nil {
		h.fail(w, r, "update invoice status", err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), orgID, id)
	if err != nil {
		h.fail(w, r, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), tenant.OrganizationID(r.Context()), id); err != nil {
		h.fail(w, r, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := tenant.ActorFromContext(r.Context())
	exp, err := h.service.CreateExpense(r.Context(), ledger.CreateExpenseInput{
		OrganizationID: actor.OrganizationID,
		Description:    req.Description,
		Amount:         string(req.Amount),
		Category:       strings.TrimSpace(req.Category),
		Date:           req.Date,
		Vendor:         strings.TrimSpace(req.Vendor),
		Receipt:        strings.TrimSpace(req.Receipt),
		RecordedBy:     actor.UserID,
	})
	if err != nil {
		h.fail(w, r, "create expense", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, exp)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := dayBounds(q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, "list expenses", err)
		return
	}
	page, perPage := shared.PageFromRequest(r)
	expenses, err := h.service.ListExpenses(r.Context(), ledger.ExpenseFilter{
		OrganizationID: tenant.OrganizationID(r.Context()),
		From:           from,
		To:             to,
		Limit:          perPage,
		Offset:         shared.Offset(page, perPage),
	})
	if err != nil {
		h.fail(w, r, "list expenses", err)
		return
	}
	if expenses == nil {
		expenses = []ledger.Expense{}
	}
	httpx.JSON(w, http.StatusOK, expenseList{Data: expenses})
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteExpense(r.Context(), tenant.OrganizationID(r.Context()), id); err != nil {
		h.fail(w, r, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.Organization(r.Context(), tenant.OrganizationID(r.Context()))
	if err != nil {
		h.fail(w, r, "get organization", err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) saveOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if !h.decode(w, r, &req) {
		return
	}
	org := ledger.Organization{
		ID:               tenant.OrganizationID(r.Context()),
		Name:             strings.TrimSpace(req.Name),
		Timezone:         strings.TrimSpace(req.Timezone),
		OverdueAfterDays: req.OverdueAfterDays,
		Currency:         strings.ToUpper(req.Currency),
	}
	if req.TaxRate != "" {
		rate, err := decimal.NewFromString(string(req.TaxRate))
		if err != nil {
			h.fail(w, r, "save organization", fmt.Errorf("%w: tax_rate is not a number", ledger.ErrValidation))
			return
		}
		org.TaxRate = decimal.NewNullDecimal(rate)
	}
	if current, err := h.service.Organization(r.Context(), org.ID); err == nil {
		org.CreatedAt = current.CreatedAt
	}
	saved, err := h.service.SaveOrganization(r.Context(), org)
	if err != nil {
		h.fail(w, r, "save organization", err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

// decode reads and validates the request body, writing the problem response
// itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", describe(fieldErrs))
			return false
		}
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, _ := httpx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func describe(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	sort.Strings(fields)
	return strings.Join(fields, "; ")
}

func parseStatuses(values []string) ([]ledger.InvoiceStatus, error) {
	var out []ledger.InvoiceStatus
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status := ledger.InvoiceStatus(part)
			if !status.Valid() {
				return nil, fmt.Errorf("%w: unknown status %q", ledger.ErrValidation, part)
			}
			out = append(out, status)
		}
	}
	return out, nil
}

// dayBounds parses optional YYYY-MM-DD bounds into an inclusive UTC range.
func dayBounds(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if from = strings.TrimSpace(from); from != "" {
		day, err := time.Parse(dayLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ledger.ErrValidation)
		}
		start = day
	}
	if to = strings.TrimSpace(to); to != "" {
		day, err := time.Parse(dayLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ledger.ErrValidation)
		}
		end = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start, end, nil
}
