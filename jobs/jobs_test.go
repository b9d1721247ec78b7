package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/Diony-dev/Veloce/internal/jobs"
	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/ledger/memory"
	"github.com/Diony-dev/Veloce/internal/reporting"
)

var sweepNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func addInvoice(t *testing.T, store *memory.Store, org uuid.UUID, number string, status ledger.InvoiceStatus, issued ledger.Timestamp) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.CreateInvoice(context.Background(), ledger.Invoice{
		ID:             id,
		OrganizationID: org,
		Number:         number,
		Total:          decimal.NewFromInt(100),
		Status:         status,
		IssuedAt:       issued,
		CreatedAt:      sweepNow,
	}))
	return id
}

func newSweep(store *memory.Store, defaults reporting.Defaults) *OverdueSweepJob {
	engine := reporting.NewEngine(reporting.EngineConfig{
		Reader:   store,
		Defaults: defaults,
		Now:      func() time.Time { return sweepNow },
	})
	svc := ledger.NewService(store, ledger.ServiceConfig{})
	return NewOverdueSweepJob(store, engine, svc, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func statusOf(t *testing.T, store *memory.Store, org, id uuid.UUID) ledger.InvoiceStatus {
	t.Helper()
	inv, err := store.GetInvoice(context.Background(), org, id)
	require.NoError(t, err)
	return inv.Status
}

func TestOverdueSweepMarksStaleInvoices(t *testing.T) {
	store := memory.NewStore()
	org := uuid.New()
	require.NoError(t, store.SaveOrganization(context.Background(), ledger.Organization{ID: org, Name: "Colmado", OverdueAfterDays: ledger.OverdueDays(30)}))

	stale := addInvoice(t, store, org, "F-1", ledger.StatusPending, ledger.At(sweepNow.AddDate(0, 0, -31)))
	staleSent := addInvoice(t, store, org, "F-2", ledger.StatusSent, ledger.RawTimestamp("2024-01-02"))
	fresh := addInvoice(t, store, org, "F-3", ledger.StatusPending, ledger.At(sweepNow.AddDate(0, 0, -10)))
	paid := addInvoice(t, store, org, "F-4", ledger.StatusPaid, ledger.At(sweepNow.AddDate(0, -3, 0)))
	draft := addInvoice(t, store, org, "F-5", ledger.StatusDraft, ledger.At(sweepNow.AddDate(0, -3, 0)))
	undated := addInvoice(t, store, org, "F-6", ledger.StatusPending, ledger.RawTimestamp("N/A"))

	task, err := NewOverdueSweepTask(uuid.Nil)
	require.NoError(t, err)
	require.NoError(t, newSweep(store, reporting.Defaults{Location: time.UTC}).Handle(context.Background(), task))

	assert.Equal(t, ledger.StatusOverdue, statusOf(t, store, org, stale))
	assert.Equal(t, ledger.StatusOverdue, statusOf(t, store, org, staleSent))
	assert.Equal(t, ledger.StatusPending, statusOf(t, store, org, fresh))
	assert.Equal(t, ledger.StatusPaid, statusOf(t, store, org, paid))
	assert.Equal(t, ledger.StatusDraft, statusOf(t, store, org, draft))
	assert.Equal(t, ledger.StatusPending, statusOf(t, store, org, undated))
}

func TestOverdueSweepDisabledByDefault(t *testing.T) {
	store := memory.NewStore()
	org := uuid.New()
	id := addInvoice(t, store, org, "F-1", ledger.StatusPending, ledger.At(sweepNow.AddDate(-1, 0, 0)))

	task, err := NewOverdueSweepTask(org)
	require.NoError(t, err)
	require.NoError(t, newSweep(store, reporting.Defaults{Location: time.UTC}).Handle(context.Background(), task))
	assert.Equal(t, ledger.StatusPending, statusOf(t, store, org, id))

	// A process wide default applies to organizations without an override.
	require.NoError(t, newSweep(store, reporting.Defaults{Location: time.UTC, OverdueAfterDays: 60}).Handle(context.Background(), task))
	assert.Equal(t, ledger.StatusOverdue, statusOf(t, store, org, id))
}

func TestOverdueSweepOrganizationOptOut(t *testing.T) {
	store := memory.NewStore()
	defaults := reporting.Defaults{Location: time.UTC, OverdueAfterDays: 5}
	optedOut, inherits := uuid.New(), uuid.New()
	require.NoError(t, store.SaveOrganization(context.Background(), ledger.Organization{ID: optedOut, Name: "Colmado", OverdueAfterDays: ledger.OverdueDays(0)}))
	require.NoError(t, store.SaveOrganization(context.Background(), ledger.Organization{ID: inherits, Name: "Farmacia"}))
	a := addInvoice(t, store, optedOut, "F-1", ledger.StatusPending, ledger.At(sweepNow.AddDate(0, 0, -30)))
	b := addInvoice(t, store, inherits, "F-1", ledger.StatusPending, ledger.At(sweepNow.AddDate(0, 0, -30)))

	task, err := NewOverdueSweepTask(uuid.Nil)
	require.NoError(t, err)
	require.NoError(t, newSweep(store, defaults).Handle(context.Background(), task))

	assert.Equal(t, ledger.StatusPending, statusOf(t, store, optedOut, a))
	assert.Equal(t, ledger.StatusOverdue, statusOf(t, store, inherits, b))
}

func TestOverdueSweepScopedToOrganization(t *testing.T) {
	store := memory.NewStore()
	defaults := reporting.Defaults{Location: time.UTC, OverdueAfterDays: 5}
	orgA, orgB := uuid.New(), uuid.New()
	a := addInvoice(t, store, orgA, "F-1", ledger.StatusPending, ledger.At(sweepNow.AddDate(0, 0, -6)))
	b := addInvoice(t, store, orgB, "F-1", ledger.StatusPending, ledger.At(sweepNow.AddDate(0, 0, -6)))

	task, err := NewOverdueSweepTask(orgA)
	require.NoError(t, err)
	require.NoError(t, newSweep(store, defaults).Handle(context.Background(), task))

	assert.Equal(t, ledger.StatusOverdue, statusOf(t, store, orgA, a))
	assert.Equal(t, ledger.StatusPending, statusOf(t, store, orgB, b))
}

func TestOverdueSweepRejectsBadPayload(t *testing.T) {
	job := newSweep(memory.NewStore(), reporting.Defaults{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskOverdueSweep, []byte(`{"organization_id":"nope"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskOverdueSweep, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var empty *OverdueSweepJob
	assert.Error(t, empty.Handle(context.Background(), asynq.NewTask(TaskOverdueSweep, nil)))
}

type stubOrgs struct {
	ids []uuid.UUID
	err error
}

func (s stubOrgs) ActiveOrganizations(context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type stubDashboards struct {
	mu       sync.Mutex
	seen     []uuid.UUID
	degraded map[uuid.UUID]bool
}

func (s *stubDashboards) Dashboard(ctx context.Context, orgID uuid.UUID) reporting.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, orgID)
	if _, ok := ctx.Deadline(); !ok {
		panic("warmup must bound each build")
	}
	return reporting.Dashboard{OrganizationID: orgID, Degraded: s.degraded[orgID]}
}

func TestDashboardWarmupVisitsEveryOrganization(t *testing.T) {
	orgs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	dashboards := &stubDashboards{degraded: map[uuid.UUID]bool{orgs[1]: true}}
	job := NewDashboardWarmupJob(stubOrgs{ids: orgs}, dashboards, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewDashboardWarmupTask(uuid.Nil)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, orgs, dashboards.seen)
}

func TestDashboardWarmupListFailure(t *testing.T) {
	boom := errors.New("store down")
	job := NewDashboardWarmupJob(stubOrgs{err: boom}, &stubDashboards{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewDashboardWarmupTask(uuid.Nil)
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestNewTask(t *testing.T) {
	org := uuid.New()
	task, err := NewTask(TaskDashboardWarmup, org)
	require.NoError(t, err)
	assert.Equal(t, TaskDashboardWarmup, task.Type())

	var payload ScopePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	id, ok, err := payload.Organization()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, org, id)

	_, err = NewTask("mail:send", org)
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		code      int
		pending   int
	}{
		{name: "no redis", inspector: nil, code: http.StatusOK},
		{name: "queue", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, code: http.StatusOK, pending: 4},
		{name: "unavailable", inspector: stubInspector{err: errors.New("dial")}, code: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.code, rec.Code)
			if tc.code != http.StatusOK {
				return
			}
			var out queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, QueueDefault, out.Queue)
			assert.Equal(t, tc.pending, out.Pending)
		})
	}
}
