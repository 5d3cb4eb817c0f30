package services

import (
	"context"
	"fmt"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
)

// Runs serves execution-history queries.
type Runs struct {
	persistence persistence.Persistence
}

func NewRuns(persistence persistence.Persistence) *Runs {
	return &Runs{persistence: persistence}
}

// History lists a workflow's runs with their outcome logs, newest first.
func (r *Runs) History(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	if _, err := r.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return nil, err
	}

	runs, err := r.persistence.RunRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for workflow %s: %w", workflowID, err)
	}

	return runs, nil
}

// FetchByID retrieves one run with its outcome log.
func (r *Runs) FetchByID(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	return r.persistence.RunRepository().GetByID(ctx, runID)
}
