package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
)

// RunRepository handles workflow run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const runColumns = `
	id
  , workflow_id
  , guest_ids
  , status
  , current_action_index
  , resume_at
  , started_at
  , completed_at
  , error
  , outcomes
`

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

// Save upserts a run with its outcome log.
func (r *RunRepository) Save(ctx context.Context, run *models.WorkflowRun) error {
	guestIDs, err := json.Marshal(run.GuestIDs)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	query := `
		INSERT INTO workflow_runs (
			id, workflow_id, guest_ids, status, current_action_index,
			resume_at, started_at, completed_at, error, outcomes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_action_index = EXCLUDED.current_action_index,
			resume_at = EXCLUDED.resume_at,
			completed_at = EXCLUDED.completed_at,
			error = EXCLUDED.error,
			outcomes = EXCLUDED.outcomes
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		guestIDs,
		run.Status,
		run.CurrentActionIndex,
		run.ResumeAt,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		outcomes,
	)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

// ListByWorkflow returns the workflow's runs, newest first.
func (r *RunRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE workflow_id = $1 ORDER BY started_at DESC`

	return r.queryRuns(ctx, query, workflowID)
}

func (r *RunRepository) ListSuspendedDue(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE status = $1 AND resume_at <= $2`

	return r.queryRuns(ctx, query, models.RunStatusSuspended, now)
}

// ClaimResume atomically flips a suspended run to running. The status guard in
// the UPDATE makes this safe across concurrent scheduler instances: exactly
// one of them sees an affected row.
func (r *RunRepository) ClaimResume(ctx context.Context, runID string) (bool, error) {
	query := `
		UPDATE workflow_runs
		SET status = $1, resume_at = NULL
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, models.RunStatusRunning, runID, models.RunStatusSuspended)
	if err != nil {
		return false, persistence.NewRunError("ClaimResume", runID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, persistence.NewRunError("ClaimResume", runID, err)
	}

	return affected == 1, nil
}

func (r *RunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]*models.WorkflowRun, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func scanRun(row rowScanner) (*models.WorkflowRun, error) {
	var (
		run         models.WorkflowRun
		guestIDs    []byte
		outcomes    []byte
		resumeAt    sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&guestIDs,
		&run.Status,
		&run.CurrentActionIndex,
		&resumeAt,
		&run.StartedAt,
		&completedAt,
		&run.Error,
		&outcomes,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(guestIDs, &run.GuestIDs); err != nil {
		return nil, fmt.Errorf("failed to decode guest ids: %w", err)
	}

	if err := json.Unmarshal(outcomes, &run.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to decode outcomes: %w", err)
	}

	if resumeAt.Valid {
		run.ResumeAt = &resumeAt.Time
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}
