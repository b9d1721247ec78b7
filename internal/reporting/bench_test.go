package reporting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/ledger/memory"
)

func seedBenchmark(b *testing.B, invoices, expenses int) (*memory.Store, uuid.UUID) {
	b.Helper()
	store := memory.NewStore()
	org := uuid.New()
	statuses := []ledger.InvoiceStatus{ledger.StatusPaid, ledger.StatusPaid, ledger.StatusPending, ledger.StatusSent, ledger.StatusOverdue}
	ctx := context.Background()
	for i := 0; i < invoices; i++ {
		issued := fixedNow.AddDate(0, 0, -(i % 400))
		ts := ledger.At(issued)
		if i%7 == 0 {
			ts = ledger.RawTimestamp(issued.Format("2006-01-02"))
		}
		if err := store.CreateInvoice(ctx, ledger.Invoice{
			ID:             uuid.New(),
			OrganizationID: org,
			Number:         fmt.Sprintf("F-%d", i),
			Customer:       ledger.LegacyCustomer(fmt.Sprintf("Cliente %d", i%50)),
			Total:          decimal.NewFromInt(int64(100 + i%900)),
			Status:         statuses[i%len(statuses)],
			IssuedAt:       ts,
			CreatedAt:      issued,
		}); err != nil {
			b.Fatal(err)
		}
	}
	for i := 0; i < expenses; i++ {
		if err := store.CreateExpense(ctx, ledger.Expense{
			ID:             uuid.New(),
			OrganizationID: org,
			Description:    "gasto",
			Amount:         decimal.NewFromInt(int64(10 + i%90)),
			Category:       fmt.Sprintf("cat-%d", i%8),
			Date:           ledger.At(fixedNow.AddDate(0, 0, -(i % 400))),
		}); err != nil {
			b.Fatal(err)
		}
	}
	return store, org
}

func BenchmarkDashboard(b *testing.B) {
	store, org := seedBenchmark(b, 5000, 2000)
	engine := NewEngine(EngineConfig{
		Reader:   store,
		Defaults: Defaults{Location: time.UTC, TaxRate: decimal.RequireFromString("0.18")},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
	})
	svc := NewService(engine, nil, nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if d := svc.Dashboard(ctx, org); d.Degraded {
			b.Fatal("unexpected degraded dashboard")
		}
	}
}

func BenchmarkFiscalSummary(b *testing.B) {
	store, org := seedBenchmark(b, 5000, 0)
	engine := NewEngine(EngineConfig{
		Reader:   store,
		Defaults: Defaults{Location: time.UTC, TaxRate: decimal.RequireFromString("0.18")},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
	})
	start := fixedNow.AddDate(0, -3, 0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.FiscalSummary(ctx, org, start, fixedNow)
	}
}
