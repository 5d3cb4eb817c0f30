package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/convoca/convoca/pkg/channels/gochannel"
	"github.com/convoca/convoca/pkg/channels/kafka"
	"github.com/convoca/convoca/pkg/eventbus"
)

func NewEventBus(provider, serviceName string, logger *slog.Logger) (eventbus.EventBus, message.Publisher, error) {
	pub, sub, err := createChannel(provider, serviceName, logger)
	if err != nil {
		return nil, nil, err
	}

	return eventbus.NewWatermillEventBus(pub, sub), pub, nil
}

func createChannel(provider, serviceName string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			return nil, nil, err
		}

		return pub, sub, nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, nil, err
		}

		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
