package reporthttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Diony-dev/Veloce/internal/platform/httpx"
	"github.com/Diony-dev/Veloce/internal/reporting"
	"github.com/Diony-dev/Veloce/internal/reporting/export"
	"github.com/Diony-dev/Veloce/internal/tenant"
)

const requestTimeout = 10 * time.Second

// degradedHeader is set on responses built from incomplete ledger data.
const degradedHeader = "X-Report-Degraded"

// ReportService is the report façade contract used by the handler.
type ReportService interface {
	Dashboard(ctx context.Context, orgID uuid.UUID) reporting.Dashboard
	KPIs(ctx context.Context, orgID uuid.UUID) reporting.MonthlyKPIs
	Comparative(ctx context.Context, orgID uuid.UUID, year int) reporting.AnnualComparative
	Categories(ctx context.Context, orgID uuid.UUID) reporting.ExpenseCategories
	TopClients(ctx context.Context, orgID uuid.UUID, limit int) reporting.TopClients
	Receivables(ctx context.Context, orgID uuid.UUID) reporting.Receivables
	CashReconciliation(ctx context.Context, orgID uuid.UUID, date string) reporting.CashReconciliation
	Fiscal(ctx context.Context, orgID uuid.UUID, start, end string) reporting.FiscalSummary
	Sales(ctx context.Context, orgID uuid.UUID, start, end string) reporting.SalesRange
	Expenses(ctx context.Context, orgID uuid.UUID, start, end string) reporting.ExpenseRange
}

// Handler serves the report endpoints of the authenticated organization.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	format    export.Formatter
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, format export.Formatter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		format:    format,
		validator: validator.New(),
		now:       time.Now,
	}
}

// WithNow overrides the handler clock used in export file names.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type comparativeQuery struct {
	Year int `validate:"omitempty,min=1970,max=2200"`
}

type topClientsQuery struct {
	Limit int `validate:"omitempty,min=1,max=100"`
}

type rangeQuery struct {
	Start string
	End   string
}

func readRange(r *http.Request) rangeQuery {
	q := r.URL.Query()
	return rangeQuery{Start: q.Get("start"), End: q.Get("end")}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	dash := h.service.Dashboard(ctx, orgID)
	h.respond(w, dash.Degraded, dash)
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	out := h.service.KPIs(ctx, orgID)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleComparative(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year")
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	if err := h.validator.Struct(comparativeQuery{Year: year}); err != nil {
		h.handleFilterError(w, validationError{field: "year"})
		return
	}
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	out := h.service.Comparative(ctx, orgID, year)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	out := h.service.Categories(ctx, orgID)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleTopClients(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	if err := h.validator.Struct(topClientsQuery{Limit: limit}); err != nil {
		h.handleFilterError(w, validationError{field: "limit"})
		return
	}
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	out := h.service.TopClients(ctx, orgID, limit)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleReceivables(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	out := h.service.Receivables(ctx, orgID)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleCashReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	out := h.service.CashReconciliation(ctx, orgID, r.URL.Query().Get("date"))
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleFiscal(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	q := readRange(r)
	out := h.service.Fiscal(ctx, orgID, q.Start, q.End)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	q := readRange(r)
	out := h.service.Sales(ctx, orgID, q.Start, q.End)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleExpenses(w http.ResponseWriter, r *http.Request) {
	ctx, orgID, cancel := h.scope(r)
	defer cancel()
	q := readRange(r)
	out := h.service.Expenses(ctx, orgID, q.Start, q.End)
	h.respond(w, out.Degraded, out)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx, orgID, cancel := h.scope(r)
	defer cancel()

	q := readRange(r)
	params := export.Params{Date: r.URL.Query().Get("date"), Start: q.Start, End: q.End}
	prepared, err := export.Prepare(ctx, h.service, orgID, name, params, h.format)
	if errors.Is(err, export.ErrUnknownReport) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unknown report %q", name))
		return
	}
	if err != nil {
		h.handleServerError(w, "prepare "+name+" export", err)
		return
	}

	if prepared.Degraded {
		w.Header().Set(degradedHeader, "true")
	}
	filename := fmt.Sprintf("%s-%s.csv", name, h.now().Format("20060102"))
	if err := httpx.CSV(w, filename, prepared.Write); err != nil {
		h.handleServerError(w, "write "+name+" csv", err)
	}
}

// scope bounds the request and extracts the tenant set by tenant.Authenticate.
func (h *Handler) scope(r *http.Request) (context.Context, uuid.UUID, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	return ctx, tenant.OrganizationID(r.Context()), cancel
}

func (h *Handler) respond(w http.ResponseWriter, degraded bool, body any) {
	if degraded {
		w.Header().Set(degradedHeader, "true")
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", vErr.Error())
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validationError{field: name}
	}
	return value, nil
}
