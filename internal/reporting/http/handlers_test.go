package reporthttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/ledger/memory"
	"github.com/Diony-dev/Veloce/internal/reporting"
	"github.com/Diony-dev/Veloce/internal/reporting/export"
	"github.com/Diony-dev/Veloce/internal/tenant"
)

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type brokenReader struct {
	*memory.Store
}

func (brokenReader) ListInvoices(context.Context, ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	return nil, context.DeadlineExceeded
}

func seed(t *testing.T, store *memory.Store, org uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	add := func(number, total string, status ledger.InvoiceStatus, at time.Time, method ledger.PaymentMethod) {
		require.NoError(t, store.CreateInvoice(ctx, ledger.Invoice{
			ID:             uuid.New(),
			OrganizationID: org,
			Number:         number,
			Customer:       ledger.LegacyCustomer("Juan Perez"),
			Total:          decimal.RequireFromString(total),
			Status:         status,
			PaymentMethod:  method,
			IssuedAt:       ledger.At(at),
			CreatedAt:      at,
		}))
	}
	add("F-1", "118", ledger.StatusPaid, time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC), ledger.PaymentCash)
	add("F-2", "236", ledger.StatusPaid, time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), ledger.PaymentCard)
	add("F-3", "50", ledger.StatusPending, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), ledger.PaymentCash)
	require.NoError(t, store.CreateExpense(ctx, ledger.Expense{
		ID:             uuid.New(),
		OrganizationID: org,
		Description:    "Hielo",
		Amount:         decimal.NewFromInt(30),
		Date:           ledger.At(time.Date(2024, 3, 20, 13, 0, 0, 0, time.UTC)),
	}))
}

func newTestRouter(t *testing.T, reader ledger.Reader, org uuid.UUID) http.Handler {
	t.Helper()
	engine := reporting.NewEngine(reporting.EngineConfig{
		Reader:   reader,
		Defaults: reporting.Defaults{Location: time.UTC, TaxRate: decimal.RequireFromString("0.18")},
		Now:      func() time.Time { return testNow },
	})
	handler := NewHandler(nil, reporting.NewService(engine, nil, nil), export.NewFormatter("en"))
	handler.WithNow(func() time.Time { return testNow })

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			actor := tenant.Actor{UserID: "ana", OrganizationID: org, Role: tenant.RoleMember}
			next.ServeHTTP(w, req.WithContext(tenant.WithActor(req.Context(), actor)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDashboardEndpoint(t *testing.T) {
	store := memory.NewStore()
	org := uuid.New()
	seed(t, store, org)
	router := newTestRouter(t, store, org)

	rec := get(t, router, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(degradedHeader))

	var dash reporting.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, org, dash.OrganizationID)
	assert.True(t, dash.KPIs.Revenue.Equal(decimal.NewFromInt(354)))
	assert.Equal(t, 1, dash.KPIs.PendingCount)
}

func TestCashReconciliationEndpoint(t *testing.T) {
	store := memory.NewStore()
	org := uuid.New()
	seed(t, store, org)
	router := newTestRouter(t, store, org)

	rec := get(t, router, "/reports/cash-reconciliation?date=2024-03-20")
	require.Equal(t, http.StatusOK, rec.Code)

	var out reporting.CashReconciliation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "2024-03-20", out.Date)
	assert.True(t, out.Summary.CashTotal.Equal(decimal.NewFromInt(118)))
	assert.True(t, out.Summary.BankTotal.Equal(decimal.NewFromInt(236)))
	assert.True(t, out.Summary.Net.Equal(decimal.NewFromInt(324)))
}

func TestQueryValidation(t *testing.T) {
	router := newTestRouter(t, memory.NewStore(), uuid.New())

	for _, target := range []string{
		"/reports/comparative?year=abc",
		"/reports/comparative?year=12",
		"/reports/top-clients?limit=-1",
		"/reports/top-clients?limit=1000",
	} {
		rec := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "problem+json", target)
	}

	rec := get(t, router, "/reports/comparative?year=2023")
	require.Equal(t, http.StatusOK, rec.Code)
	var out reporting.AnnualComparative
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2023, out.Year)
}

func TestDegradedHeader(t *testing.T) {
	store := memory.NewStore()
	org := uuid.New()
	router := newTestRouter(t, brokenReader{Store: store}, org)

	rec := get(t, router, "/reports/receivables")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(degradedHeader))

	var out reporting.Receivables
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Degraded)
	assert.Empty(t, out.Items)
}

func TestFiscalExportCSV(t *testing.T) {
	store := memory.NewStore()
	org := uuid.New()
	seed(t, store, org)
	router := newTestRouter(t, store, org)

	rec := get(t, router, "/reports/fiscal/export.csv?start=2024-03-01&end=2024-03-20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fiscal-20240320.csv")

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"2024-03-20", "F-1", "Juan Perez", "100.00", "18.00", "118.00"}, records[1])
}

func TestExportUnknownReport(t *testing.T) {
	router := newTestRouter(t, memory.NewStore(), uuid.New())
	rec := get(t, router, "/reports/payroll/export.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportRateLimited(t *testing.T) {
	router := newTestRouter(t, memory.NewStore(), uuid.New())
	for i := 0; i < exportsPerMinute; i++ {
		rec := get(t, router, "/reports/sales/export.csv")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := get(t, router, "/reports/sales/export.csv")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// JSON endpoints are not limited.
	assert.Equal(t, http.StatusOK, get(t, router, "/reports/sales").Code)
}
