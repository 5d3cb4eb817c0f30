package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

// TriggerMarkRepository records conditional trigger firings per workflow+guest.
type TriggerMarkRepository struct {
	db *sql.DB
}

func (r *TriggerMarkRepository) Marked(ctx context.Context, workflowID, guestID string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM trigger_marks WHERE workflow_id = $1 AND guest_id = $2)`

	err := r.db.QueryRowContext(ctx, query, workflowID, guestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trigger mark: %w", err)
	}

	return exists, nil
}

func (r *TriggerMarkRepository) Mark(ctx context.Context, workflowID, guestID string) error {
	query := `
		INSERT INTO trigger_marks (workflow_id, guest_id)
		VALUES ($1, $2)
		ON CONFLICT (workflow_id, guest_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, workflowID, guestID)
	if err != nil {
		return fmt.Errorf("failed to write trigger mark: %w", err)
	}

	return nil
}
