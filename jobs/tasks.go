// Package jobs runs the asynq background work of the ledger: the overdue
// sweep and the dashboard cache warmup.
package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep moves stale receivables to Vencido.
	TaskOverdueSweep = "ledger:overdue_sweep"
	// TaskDashboardWarmup rebuilds cached dashboards.
	TaskDashboardWarmup = "reports:dashboard_warmup"
)

// Tasks lists every task type the worker handles.
var Tasks = []string{TaskOverdueSweep, TaskDashboardWarmup}

// ScopePayload targets one organization, or every active one when empty.
type ScopePayload struct {
	OrganizationID string `json:"organization_id,omitempty"`
}

// Organization parses the optional scope.
func (p ScopePayload) Organization() (uuid.UUID, bool, error) {
	raw := strings.TrimSpace(p.OrganizationID)
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("jobs: organization id: %w", err)
	}
	return id, true, nil
}

// NewOverdueSweepTask builds a sweep task. A nil org sweeps every organization.
func NewOverdueSweepTask(orgID uuid.UUID) (*asynq.Task, error) {
	return newScopedTask(TaskOverdueSweep, orgID)
}

// NewDashboardWarmupTask builds a warmup task. A nil org warms every organization.
func NewDashboardWarmupTask(orgID uuid.UUID) (*asynq.Task, error) {
	return newScopedTask(TaskDashboardWarmup, orgID)
}

// NewTask builds a task by type name, used by the CLI.
func NewTask(name string, orgID uuid.UUID) (*asynq.Task, error) {
	switch name {
	case TaskOverdueSweep:
		return NewOverdueSweepTask(orgID)
	case TaskDashboardWarmup:
		return NewDashboardWarmupTask(orgID)
	default:
		return nil, fmt.Errorf("jobs: unsupported task %q", name)
	}
}

func newScopedTask(typename string, orgID uuid.UUID) (*asynq.Task, error) {
	var payload ScopePayload
	if orgID != uuid.Nil {
		payload.OrganizationID = orgID.String()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}

func decodeScope(t *asynq.Task) (ScopePayload, error) {
	var payload ScopePayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	_, _, err := payload.Organization()
	return payload, err
}
