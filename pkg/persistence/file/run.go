package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
)

// RunRepository handles run files under root/runs. A process-wide mutex makes
// ClaimResume atomic; the file backend targets single-process setups, the
// PostgreSQL backend covers multi-instance deployments.
type RunRepository struct {
	root  string
	mutex sync.Mutex
}

func (rr *RunRepository) dir() string {
	return filepath.Join(rr.root, "runs")
}

func (rr *RunRepository) path(id string) string {
	return filepath.Join(rr.dir(), id+".json")
}

func (rr *RunRepository) GetByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{}

	err := readJSON(rr.path(id), persistence.ErrRunNotFound, run)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return nil, err
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

func (rr *RunRepository) Save(_ context.Context, run *models.WorkflowRun) error {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	err := writeJSON(rr.path(run.ID), run)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

// ListByWorkflow returns the workflow's runs, newest first.
func (rr *RunRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	runs, err := rr.all(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowRun, 0)

	for _, run := range runs {
		if run.WorkflowID == workflowID {
			matched = append(matched, run)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	return matched, nil
}

func (rr *RunRepository) ListSuspendedDue(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error) {
	runs, err := rr.all(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.WorkflowRun, 0)

	for _, run := range runs {
		if run.ResumeDue(now) {
			due = append(due, run)
		}
	}

	return due, nil
}

// ClaimResume flips a suspended run to running. Exactly one caller wins.
func (rr *RunRepository) ClaimResume(ctx context.Context, runID string) (bool, error) {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	run, err := rr.GetByID(ctx, runID)
	if err != nil {
		return false, err
	}

	if run.Status != models.RunStatusSuspended {
		return false, nil
	}

	run.Status = models.RunStatusRunning
	run.ResumeAt = nil

	if err := writeJSON(rr.path(run.ID), run); err != nil {
		return false, persistence.NewRunError("ClaimResume", runID, err)
	}

	return true, nil
}

func (rr *RunRepository) all(ctx context.Context) ([]*models.WorkflowRun, error) {
	if _, err := os.Stat(rr.dir()); errors.Is(err, fs.ErrNotExist) {
		return []*models.WorkflowRun{}, nil
	}

	ids, err := listJSONFiles(rr.dir())
	if err != nil {
		return nil, persistence.NewRunError("List", "", err)
	}

	runs := make([]*models.WorkflowRun, 0, len(ids))

	for _, id := range ids {
		run, err := rr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	return runs, nil
}
