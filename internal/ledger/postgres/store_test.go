package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

func TestInvoiceWhereOrganizationOnly(t *testing.T) {
	org := uuid.New()
	where, args := invoiceWhere(ledger.InvoiceFilter{OrganizationID: org})
	assert.Equal(t, "organization_id = $1", where)
	assert.Equal(t, []any{org}, args)
}

func TestInvoiceWhereAllPredicates(t *testing.T) {
	org := uuid.New()
	from := time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 3, 59, 59, 0, time.UTC)
	where, args := invoiceWhere(ledger.InvoiceFilter{
		OrganizationID: org,
		Statuses:       []ledger.InvoiceStatus{ledger.StatusPaid},
		From:           from,
		To:             to,
		Search:         "pedro",
	})
	assert.Equal(t,
		"organization_id = $1 AND status = ANY($2) AND (issued_at IS NULL OR issued_at >= $3) AND "+
			"(issued_at IS NULL OR issued_at <= $4) AND (customer::text ILIKE $5 OR number ILIKE $5)",
		where)
	require.Len(t, args, 5)
	assert.Equal(t, []string{"Pagado"}, args[1])
	assert.Equal(t, "%pedro%", args[4])

	query, args := appendPage("SELECT 1 WHERE "+where, args, 20, 40)
	assert.Contains(t, query, "LIMIT $6 OFFSET $7")
	assert.Equal(t, 20, args[5])
	assert.Equal(t, 40, args[6])
}

func TestExpenseWhereBounds(t *testing.T) {
	org := uuid.New()
	where, args := expenseWhere(ledger.ExpenseFilter{OrganizationID: org, To: time.Now()})
	assert.Equal(t, "organization_id = $1 AND (spent_at IS NULL OR spent_at <= $2)", where)
	assert.Len(t, args, 2)
}

func TestTimestampColumns(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	native, raw := timestampParams(ledger.At(at))
	assert.True(t, native.Valid)
	assert.False(t, raw.Valid)

	native, raw = timestampParams(ledger.RawTimestamp("2024-03-05"))
	assert.False(t, native.Valid)
	assert.Equal(t, "2024-03-05", raw.String)

	ts := timestampValue(pgtype.Timestamptz{}, pgtype.Text{String: "05/03/2024", Valid: true})
	assert.Equal(t, "05/03/2024", ts.Raw())
	ts = timestampValue(pgtype.Timestamptz{Time: at, Valid: true}, pgtype.Text{})
	got, ok := ts.Time()
	require.True(t, ok)
	assert.True(t, got.Equal(at))
	assert.True(t, timestampValue(pgtype.Timestamptz{}, pgtype.Text{}).IsZero())
}
