// Package protocol defines the interfaces between the workflow engine and its
// external collaborators: channel senders, the guest store, and the clock.
package protocol

import (
	"context"
	"log/slog"

	"github.com/convoca/convoca/pkg/models"
)

// SendRequest is one delivery attempt for one recipient of one messaging
// action. Message and Template are already rendered; the sender treats them as
// opaque provider payloads.
type SendRequest struct {
	Channel     models.ActionType  `json:"channel"`
	WorkflowID  string             `json:"workflow_id"`
	RunID       string             `json:"run_id"`
	ActionID    string             `json:"action_id"`
	Recipient   models.GuestRecord `json:"recipient"`
	Message     string             `json:"message"`
	Template    string             `json:"template,omitempty"`
}

// Sender delivers messages on one channel. A failed delivery must return an
// error rather than silently dropping; the executor records it per recipient.
type Sender interface {
	Send(ctx context.Context, request SendRequest) error
}

// SenderFactory creates Sender instances for one channel. Implementations are
// registered with the sender registry keyed by ID().
type SenderFactory interface {
	Create(config map[string]any, logger *slog.Logger) (Sender, error)
	ID() string
}
