// Package persistence provides the data storage abstraction for workflow
// definitions, runs, trigger schedules, and conditional trigger marks.
package persistence

import (
	"context"
	"time"

	"github.com/convoca/convoca/pkg/models"
)

// Persistence is the storage entry point. Implementations: file (JSON files,
// dev/test) and postgresql.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RunRepository() RunRepository
	ScheduleRepository() ScheduleRepository
	TriggerMarkRepository() TriggerMarkRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// RunRepository stores workflow runs and their outcome logs.
type RunRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	Save(ctx context.Context, run *models.WorkflowRun) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error)

	// ListSuspendedDue returns suspended runs whose resume timestamp has
	// elapsed at the given time.
	ListSuspendedDue(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error)

	// ClaimResume atomically transitions a suspended run back to running.
	// It returns false when another executor already claimed the run, which
	// keeps at most one executor advancing a given run at a time.
	ClaimResume(ctx context.Context, runID string) (bool, error)
}

// ScheduleRepository stores trigger schedules for scheduled workflows.
type ScheduleRepository interface {
	GetByWorkflow(ctx context.Context, workflowID string) (*models.TriggerSchedule, error)
	Save(ctx context.Context, schedule *models.TriggerSchedule) error
	ListDue(ctx context.Context, now time.Time) ([]*models.TriggerSchedule, error)
	Delete(ctx context.Context, workflowID string) error
}

// TriggerMarkRepository tracks which guests already tripped a conditional
// workflow, so a guest whose condition stays true does not cause repeated
// runs.
type TriggerMarkRepository interface {
	Marked(ctx context.Context, workflowID, guestID string) (bool, error)
	Mark(ctx context.Context, workflowID, guestID string) error
}
