package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
)

// WorkflowRepository handles workflow definition files under root/workflows.
type WorkflowRepository struct {
	root string
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

// List returns every stored workflow, newest first.
func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	if _, err := os.Stat(wr.dir()); errors.Is(err, fs.ErrNotExist) {
		return []*models.Workflow{}, nil
	}

	ids, err := listJSONFiles(wr.dir())
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	err := readJSON(wr.path(id), persistence.ErrWorkflowNotFound, workflow)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, err
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := writeJSON(wr.path(workflow.ID), workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(wr.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.ErrWorkflowNotFound
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
