// Package log provides a sender that logs deliveries instead of dispatching
// them, for development and tests.
package log

import (
	"context"
	"log/slog"

	"github.com/convoca/convoca/pkg/protocol"
)

type Sender struct {
	logger *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	return &Sender{
		logger: logger.With("module", "log_sender"),
	}
}

func (s *Sender) Send(_ context.Context, request protocol.SendRequest) error {
	s.logger.Info("Dispatching message",
		"channel", request.Channel,
		"workflow_id", request.WorkflowID,
		"run_id", request.RunID,
		"action_id", request.ActionID,
		"recipient_id", request.Recipient.ID,
		"message", request.Message,
		"template", request.Template,
	)

	return nil
}
