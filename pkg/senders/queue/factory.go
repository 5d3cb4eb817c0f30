package queue

import (
	"errors"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/protocol"
)

var ErrPublisherRequired = errors.New("queue sender requires a publisher")

// SenderFactory creates queue-backed Sender instances for one channel,
// sharing a single publisher.
type SenderFactory struct {
	channel   models.ActionType
	publisher message.Publisher
}

func NewSenderFactory(channel models.ActionType, publisher message.Publisher) *SenderFactory {
	return &SenderFactory{channel: channel, publisher: publisher}
}

// ID returns the channel this factory serves.
func (f *SenderFactory) ID() string {
	return string(f.channel)
}

// Create creates a new Sender instance with the provided configuration.
func (f *SenderFactory) Create(_ map[string]any, logger *slog.Logger) (protocol.Sender, error) {
	if f.publisher == nil {
		return nil, ErrPublisherRequired
	}

	return NewSender(f.publisher, logger), nil
}
