package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/Diony-dev/Veloce/internal/jobs"
	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/reporting"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// sweepStatuses are moved to Vencido once past the threshold.
var sweepStatuses = []ledger.InvoiceStatus{ledger.StatusPending, ledger.StatusSent}

// SettingsSource resolves per organization report settings.
type SettingsSource interface {
	Settings(ctx context.Context, orgID uuid.UUID) reporting.Settings
	Bucketer(ctx context.Context, orgID uuid.UUID) reporting.Bucketer
}

// StatusUpdater applies status transitions through the ledger service so the
// dashboard cache is bumped.
type StatusUpdater interface {
	UpdateInvoiceStatus(ctx context.Context, orgID, id uuid.UUID, status ledger.InvoiceStatus) error
}

// OverdueSweepJob marks old unpaid invoices as overdue for organizations that
// configured a threshold.
type OverdueSweepJob struct {
	Reader   ledger.Reader
	Settings SettingsSource
	Ledger   StatusUpdater
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewOverdueSweepJob wires dependencies for the sweep handler.
func NewOverdueSweepJob(reader ledger.Reader, settings SettingsSource, updater StatusUpdater, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{Reader: reader, Settings: settings, Ledger: updater, Logger: logger, Metrics: metrics}
}

// Handle processes overdue sweep tasks.
func (j *OverdueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reader == nil || j.Settings == nil || j.Ledger == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	payload, err := decodeScope(t)
	if err != nil {
		return fmt.Errorf("overdue sweep: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskOverdueSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	orgs, err := resolveScope(ctx, j.Reader, payload)
	if err != nil {
		resultErr = err
		logger.Error("load organizations", slog.Any("error", err))
		return resultErr
	}

	started := time.Now()
	marked := 0
	for _, orgID := range orgs {
		n, err := j.sweep(ctx, orgID)
		marked += n
		if err != nil {
			resultErr = err
			logger.Error("sweep organization", slog.String("organization_id", orgID.String()), slog.Any("error", err))
			break
		}
	}
	j.metrics().AddOverdue(marked)
	logger.Info("completed overdue sweep", slog.Int("organizations", len(orgs)), slog.Int("marked", marked), slog.Duration("duration", time.Since(started)))
	return resultErr
}

// sweep runs the transition for one organization and returns how many
// invoices changed.
func (j *OverdueSweepJob) sweep(ctx context.Context, orgID uuid.UUID) (int, error) {
	st := j.Settings.Settings(ctx, orgID)
	if st.OverdueAfterDays <= 0 {
		return 0, nil
	}
	b := j.Settings.Bucketer(ctx, orgID)
	now := b.Now()
	threshold := time.Duration(st.OverdueAfterDays) * 24 * time.Hour

	invoices, err := j.Reader.ListInvoices(ctx, ledger.InvoiceFilter{
		OrganizationID: orgID,
		Statuses:       sweepStatuses,
		To:             now.Add(-threshold),
	})
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, inv := range invoices {
		if inv.OrganizationID != orgID || !inv.Status.In(sweepStatuses) {
			continue
		}
		issued, ok := b.Resolve(inv.IssuedAt)
		if !ok || now.Sub(issued) <= threshold {
			continue
		}
		err := j.Ledger.UpdateInvoiceStatus(ctx, orgID, inv.ID, ledger.StatusOverdue)
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		if err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

func (j *OverdueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskOverdueSweep))
}

func (j *OverdueSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
