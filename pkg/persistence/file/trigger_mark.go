package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TriggerMarkRepository records conditional trigger firings as marker files
// under root/marks/<workflowID>/<guestID>.
type TriggerMarkRepository struct {
	root string
}

func (tr *TriggerMarkRepository) path(workflowID, guestID string) string {
	return filepath.Join(tr.root, "marks", workflowID, guestID)
}

func (tr *TriggerMarkRepository) Marked(_ context.Context, workflowID, guestID string) (bool, error) {
	_, err := os.Stat(tr.path(workflowID, guestID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check trigger mark: %w", err)
	}

	return true, nil
}

func (tr *TriggerMarkRepository) Mark(_ context.Context, workflowID, guestID string) error {
	path := tr.path(workflowID, guestID)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create trigger mark directory: %w", err)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("failed to write trigger mark: %w", err)
	}

	return nil
}
