package log

import (
	"log/slog"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/protocol"
)

// SenderFactory creates log-backed Sender instances for one channel.
type SenderFactory struct {
	channel models.ActionType
}

func NewSenderFactory(channel models.ActionType) *SenderFactory {
	return &SenderFactory{channel: channel}
}

// ID returns the channel this factory serves.
func (f *SenderFactory) ID() string {
	return string(f.channel)
}

// Create creates a new Sender instance with the provided configuration.
func (f *SenderFactory) Create(_ map[string]any, logger *slog.Logger) (protocol.Sender, error) {
	return NewSender(logger), nil
}
