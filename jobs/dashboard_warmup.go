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
	"github.com/Diony-dev/Veloce/internal/reporting"
)

// warmupTimeout bounds a single organization's dashboard build.
const warmupTimeout = 20 * time.Second

// DashboardBuilder builds, and caches, an organization dashboard.
type DashboardBuilder interface {
	Dashboard(ctx context.Context, orgID uuid.UUID) reporting.Dashboard
}

// DashboardWarmupJob pre-populates the dashboard cache for active organizations.
type DashboardWarmupJob struct {
	Orgs    OrganizationLister
	Reports DashboardBuilder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(orgs OrganizationLister, reports DashboardBuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Orgs: orgs, Reports: reports, Logger: logger, Metrics: metrics}
}

// Handle processes dashboard warmup tasks. Degraded builds are logged and
// skipped; they are never cached.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Orgs == nil || j.Reports == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	payload, err := decodeScope(t)
	if err != nil {
		return fmt.Errorf("dashboard warmup: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	orgs, err := resolveScope(ctx, j.Orgs, payload)
	if err != nil {
		resultErr = err
		logger.Error("load organizations", slog.Any("error", err))
		return resultErr
	}
	if len(orgs) == 0 {
		logger.Info("no organizations discovered for warmup")
		return resultErr
	}

	started := time.Now()
	warmed, degraded := 0, 0
	for _, orgID := range orgs {
		if err := ctx.Err(); err != nil {
			resultErr = err
			break
		}
		if j.warm(ctx, orgID) {
			warmed++
		} else {
			degraded++
			logger.Warn("dashboard degraded during warmup", slog.String("organization_id", orgID.String()))
		}
	}
	j.metrics().AddWarmed(warmed)
	logger.Info("completed dashboard warmup", slog.Int("warmed", warmed), slog.Int("degraded", degraded), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *DashboardWarmupJob) warm(ctx context.Context, orgID uuid.UUID) bool {
	orgCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	return !j.Reports.Dashboard(orgCtx, orgID).Degraded
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
