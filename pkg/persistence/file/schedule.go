package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
)

// ScheduleRepository keeps one schedule file per workflow under root/schedules.
type ScheduleRepository struct {
	root string
}

func (sr *ScheduleRepository) dir() string {
	return filepath.Join(sr.root, "schedules")
}

func (sr *ScheduleRepository) path(workflowID string) string {
	return filepath.Join(sr.dir(), workflowID+".json")
}

func (sr *ScheduleRepository) GetByWorkflow(_ context.Context, workflowID string) (*models.TriggerSchedule, error) {
	schedule := &models.TriggerSchedule{}

	err := readJSON(sr.path(workflowID), persistence.ErrScheduleNotFound, schedule)
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

func (sr *ScheduleRepository) Save(_ context.Context, schedule *models.TriggerSchedule) error {
	return writeJSON(sr.path(schedule.WorkflowID), schedule)
}

func (sr *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.TriggerSchedule, error) {
	if _, err := os.Stat(sr.dir()); errors.Is(err, fs.ErrNotExist) {
		return []*models.TriggerSchedule{}, nil
	}

	ids, err := listJSONFiles(sr.dir())
	if err != nil {
		return nil, err
	}

	due := make([]*models.TriggerSchedule, 0)

	for _, workflowID := range ids {
		schedule, err := sr.GetByWorkflow(ctx, workflowID)
		if err != nil {
			return nil, err
		}

		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (sr *ScheduleRepository) Delete(_ context.Context, workflowID string) error {
	err := os.Remove(sr.path(workflowID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
