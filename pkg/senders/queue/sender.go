// Package queue provides a sender that hands deliveries off to an external
// dispatch pipeline through the message broker instead of contacting providers
// directly.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/convoca/convoca/pkg/protocol"
)

// Topic is the broker topic delivery requests are published to.
const Topic = "convoca.sends"

const channelMetadataKey = "channel"

type Sender struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewSender(publisher message.Publisher, logger *slog.Logger) *Sender {
	return &Sender{
		publisher: publisher,
		logger:    logger.With("module", "queue_sender"),
	}
}

func (s *Sender) Send(_ context.Context, request protocol.SendRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	msg := message.NewMessage("send-"+watermill.NewULID(), payload)
	msg.Metadata.Set(channelMetadataKey, string(request.Channel))

	err = s.publisher.Publish(Topic, msg)
	if err != nil {
		return fmt.Errorf("failed to publish send request: %w", err)
	}

	s.logger.Debug("Queued message for dispatch",
		"channel", request.Channel,
		"run_id", request.RunID,
		"recipient_id", request.Recipient.ID,
	)

	return nil
}
