package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

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

var cliNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func testDeps(t *testing.T, org uuid.UUID) Deps {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.CreateInvoice(context.Background(), ledger.Invoice{
		ID:             uuid.New(),
		OrganizationID: org,
		Number:         "F-1",
		Customer:       ledger.LegacyCustomer("Juan Perez"),
		Total:          decimal.NewFromInt(118),
		Status:         ledger.StatusPaid,
		PaymentMethod:  ledger.PaymentCash,
		IssuedAt:       ledger.At(cliNow.Add(-time.Hour)),
		CreatedAt:      cliNow,
	}))
	engine := reporting.NewEngine(reporting.EngineConfig{
		Reader:   store,
		Defaults: reporting.Defaults{Location: time.UTC, TaxRate: decimal.RequireFromString("0.18")},
		Now:      func() time.Time { return cliNow },
	})
	svc := reporting.NewService(engine, nil, nil)
	return Deps{
		OpenReports: func(context.Context) (ReportSource, func(), error) {
			return svc, func() {}, nil
		},
		Verifier: func() (*tenant.Verifier, error) {
			return tenant.NewVerifier("cli-secret", "veloce")
		},
		Formatter: export.NewFormatter("en"),
	}
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(deps)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportJSON(t *testing.T) {
	org := uuid.New()
	out, err := run(t, testDeps(t, org), "report", "kpis", "--org", org.String())
	require.NoError(t, err)

	var kpis reporting.MonthlyKPIs
	require.NoError(t, json.Unmarshal([]byte(out), &kpis))
	assert.True(t, kpis.Revenue.Equal(decimal.NewFromInt(118)))
}

func TestReportCSV(t *testing.T) {
	org := uuid.New()
	out, err := run(t, testDeps(t, org), "report", "fiscal", "--org", org.String(), "--start", "2024-03-01", "--end", "2024-03-20", "--csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 2)
	assert.Contains(t, records[1], "100.00")
	assert.Contains(t, records[1], "18.00")
}

func TestReportErrors(t *testing.T) {
	org := uuid.New()
	deps := testDeps(t, org)

	_, err := run(t, deps, "report", "payroll", "--org", org.String())
	assert.ErrorContains(t, err, "unknown report")

	_, err = run(t, deps, "report", "kpis", "--org", "nope")
	assert.ErrorContains(t, err, "--org")

	_, err = run(t, deps, "report", "kpis")
	assert.Error(t, err)

	_, err = run(t, deps, "report", "dashboard", "--org", org.String(), "--csv")
	assert.ErrorIs(t, err, export.ErrUnknownReport)
}

func TestTokenCommand(t *testing.T) {
	org := uuid.New()
	deps := testDeps(t, org)

	out, err := run(t, deps, "token", "--org", org.String(), "--user", "ana", "--role", "admin")
	require.NoError(t, err)

	verifier, err := deps.Verifier()
	require.NoError(t, err)
	actor, err := verifier.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, org, actor.OrganizationID)
	assert.Equal(t, "ana", actor.UserID)
	assert.True(t, actor.IsAdmin())

	_, err = run(t, deps, "token", "--org", org.String(), "--role", "owner")
	assert.Error(t, err)
}

func TestJobsTriggerValidatesBeforeConnecting(t *testing.T) {
	deps := testDeps(t, uuid.New())
	_, err := run(t, deps, "jobs", "trigger", "mail:send")
	assert.ErrorContains(t, err, "unsupported task")

	_, err = run(t, deps, "jobs", "trigger", "ledger:overdue_sweep")
	assert.ErrorContains(t, err, "job queue not configured")
}
