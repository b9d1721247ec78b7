package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diony-dev/Veloce/internal/reporting"
)

// stubSource records the parameters each report was asked for.
type stubSource struct {
	date, start, end string
	degraded         bool
}

func (s *stubSource) CashReconciliation(_ context.Context, _ uuid.UUID, date string) reporting.CashReconciliation {
	s.date = date
	out := reporting.CashReconciliation{Date: "2024-03-20"}
	out.Degraded = s.degraded
	return out
}

func (s *stubSource) Receivables(context.Context, uuid.UUID) reporting.Receivables {
	out := reporting.Receivables{}
	out.Degraded = s.degraded
	return out
}

func (s *stubSource) Fiscal(_ context.Context, _ uuid.UUID, start, end string) reporting.FiscalSummary {
	s.start, s.end = start, end
	return reporting.FiscalSummary{}
}

func (s *stubSource) Sales(_ context.Context, _ uuid.UUID, start, end string) reporting.SalesRange {
	s.start, s.end = start, end
	return reporting.SalesRange{}
}

func (s *stubSource) Expenses(_ context.Context, _ uuid.UUID, start, end string) reporting.ExpenseRange {
	s.start, s.end = start, end
	return reporting.ExpenseRange{}
}

func TestPrepareEveryName(t *testing.T) {
	f := NewFormatter("en")
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			src := &stubSource{}
			prepared, err := Prepare(context.Background(), src, uuid.New(), name, Params{}, f)
			require.NoError(t, err)
			assert.Equal(t, name, prepared.Name)

			var buf bytes.Buffer
			require.NoError(t, prepared.Write(&buf))
			assert.NotEmpty(t, readCSV(t, &buf))
		})
	}
}

func TestPreparePassesParams(t *testing.T) {
	src := &stubSource{degraded: true}
	params := Params{Date: "2024-03-20", Start: "2024-03-01", End: "2024-03-31"}

	prepared, err := Prepare(context.Background(), src, uuid.New(), CashReconciliation, params, NewFormatter("en"))
	require.NoError(t, err)
	assert.True(t, prepared.Degraded)
	assert.Equal(t, "2024-03-20", src.date)

	_, err = Prepare(context.Background(), src, uuid.New(), Sales, params, NewFormatter("en"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", src.start)
	assert.Equal(t, "2024-03-31", src.end)
}

func TestPrepareUnknown(t *testing.T) {
	_, err := Prepare(context.Background(), &stubSource{}, uuid.New(), "payroll", Params{}, NewFormatter("en"))
	assert.ErrorIs(t, err, ErrUnknownReport)
}
