package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
)

// ScheduleRepository handles trigger schedule database operations.
type ScheduleRepository struct {
	db *sql.DB
}

func (r *ScheduleRepository) GetByWorkflow(ctx context.Context, workflowID string) (*models.TriggerSchedule, error) {
	query := `
		SELECT id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at
		FROM trigger_schedules
		WHERE workflow_id = $1
	`

	schedule := &models.TriggerSchedule{}

	err := r.db.QueryRowContext(ctx, query, workflowID).Scan(
		&schedule.ID,
		&schedule.WorkflowID,
		&schedule.CronExpression,
		&schedule.NextDueAt,
		&schedule.Active,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, fmt.Errorf("failed to query schedule for workflow %s: %w", workflowID, err)
	}

	return schedule, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.TriggerSchedule) error {
	query := `
		INSERT INTO trigger_schedules (
			id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workflow_id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.WorkflowID,
		schedule.CronExpression,
		schedule.NextDueAt,
		schedule.Active,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule for workflow %s: %w", schedule.WorkflowID, err)
	}

	return nil
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.TriggerSchedule, error) {
	query := `
		SELECT id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at
		FROM trigger_schedules
		WHERE active = TRUE AND next_due_at <= $1
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	schedules := make([]*models.TriggerSchedule, 0)

	for rows.Next() {
		schedule := &models.TriggerSchedule{}

		err := rows.Scan(
			&schedule.ID,
			&schedule.WorkflowID,
			&schedule.CronExpression,
			&schedule.NextDueAt,
			&schedule.Active,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM trigger_schedules WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule for workflow %s: %w", workflowID, err)
	}

	return nil
}
