package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Service is the report façade used by handlers, jobs and the CLI.
type Service struct {
	engine *Engine
	cache  *Cache
	logger *slog.Logger
}

// NewService wires the façade. cache may be nil.
func NewService(engine *Engine, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, cache: cache, logger: logger}
}

// Dashboard returns KPIs, the annual comparative, the category breakdown and
// the top clients of the organization.
func (s *Service) Dashboard(ctx context.Context, orgID uuid.UUID) Dashboard {
	if s.cache == nil {
		return s.buildDashboard(ctx, orgID)
	}
	b := s.engine.Bucketer(ctx, orgID)
	key, err := s.cache.BuildKey(ctx, orgID, "dashboard", b.DayKey(b.Now()))
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard cache key", slog.String("organization_id", orgID.String()), slog.Any("error", err))
		return s.buildDashboard(ctx, orgID)
	}
	var dash Dashboard
	err = s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (any, error) {
		return s.buildDashboard(ctx, orgID), nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard cache", slog.String("organization_id", orgID.String()), slog.Any("error", err))
		return s.buildDashboard(ctx, orgID)
	}
	return dash
}

func (s *Service) buildDashboard(ctx context.Context, orgID uuid.UUID) Dashboard {
	dash := Dashboard{OrganizationID: orgID, GeneratedAt: s.engine.now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash.KPIs = s.engine.MonthlyKPIs(ctx, orgID)
		return nil
	})
	g.Go(func() error {
		dash.Comparative = s.engine.AnnualComparative(ctx, orgID, 0)
		return nil
	})
	g.Go(func() error {
		dash.Categories = s.engine.ExpenseCategories(ctx, orgID)
		return nil
	})
	g.Go(func() error {
		dash.TopClients = s.engine.TopClients(ctx, orgID, 0)
		return nil
	})
	_ = g.Wait()

	dash.Degraded = dash.KPIs.Degraded || dash.Comparative.Degraded ||
		dash.Categories.Degraded || dash.TopClients.Degraded
	return dash
}

// KPIs returns the monthly KPIs.
func (s *Service) KPIs(ctx context.Context, orgID uuid.UUID) MonthlyKPIs {
	return s.engine.MonthlyKPIs(ctx, orgID)
}

// Comparative returns the annual comparative of year, or the current year
// when year is not positive.
func (s *Service) Comparative(ctx context.Context, orgID uuid.UUID, year int) AnnualComparative {
	return s.engine.AnnualComparative(ctx, orgID, year)
}

// Categories returns the expense category breakdown.
func (s *Service) Categories(ctx context.Context, orgID uuid.UUID) ExpenseCategories {
	return s.engine.ExpenseCategories(ctx, orgID)
}

// TopClients returns the best customers.
func (s *Service) TopClients(ctx context.Context, orgID uuid.UUID, limit int) TopClients {
	return s.engine.TopClients(ctx, orgID, limit)
}

// Receivables returns the open invoices.
func (s *Service) Receivables(ctx context.Context, orgID uuid.UUID) Receivables {
	return s.engine.Receivables(ctx, orgID)
}

// CashReconciliation returns the reconciliation of date (YYYY-MM-DD), today
// when empty or malformed.
func (s *Service) CashReconciliation(ctx context.Context, orgID uuid.UUID, date string) CashReconciliation {
	b := s.engine.Bucketer(ctx, orgID)
	return s.engine.CashReconciliation(ctx, orgID, b.ParseDay(date, b.Now()))
}

// Fiscal returns the tax summary of [start, end].
func (s *Service) Fiscal(ctx context.Context, orgID uuid.UUID, start, end string) FiscalSummary {
	from, to := s.resolveRange(ctx, orgID, start, end)
	return s.engine.FiscalSummary(ctx, orgID, from, to)
}

// Sales returns daily sales of [start, end].
func (s *Service) Sales(ctx context.Context, orgID uuid.UUID, start, end string) SalesRange {
	from, to := s.resolveRange(ctx, orgID, start, end)
	return s.engine.SalesByRange(ctx, orgID, from, to)
}

// Expenses returns the expenses of [start, end].
func (s *Service) Expenses(ctx context.Context, orgID uuid.UUID, start, end string) ExpenseRange {
	from, to := s.resolveRange(ctx, orgID, start, end)
	return s.engine.ExpensesByRange(ctx, orgID, from, to)
}

// resolveRange defaults to the first of the current month through today.
func (s *Service) resolveRange(ctx context.Context, orgID uuid.UUID, start, end string) (from, to time.Time) {
	b := s.engine.Bucketer(ctx, orgID)
	now := b.Now()
	monthStart, _ := b.MonthRange(now)
	return b.ParseDay(start, monthStart), b.ParseDay(end, now)
}
