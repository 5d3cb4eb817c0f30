package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/registry"
	logsender "github.com/convoca/convoca/pkg/senders/log"
	"github.com/convoca/convoca/pkg/senders/queue"
)

var messagingChannels = []models.ActionType{
	models.ActionTypeEmail,
	models.ActionTypeSMS,
	models.ActionTypeWhatsApp,
	models.ActionTypeTelegram,
}

// NewRegistry wires a sender factory for every messaging channel. The "queue"
// mode hands dispatches to downstream delivery consumers; "log" only records
// them, which is what local development wants.
func NewRegistry(logger *slog.Logger, senderMode string, publisher message.Publisher) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	for _, channel := range messagingChannels {
		switch senderMode {
		case "queue":
			reg.RegisterSender(queue.NewSenderFactory(channel, publisher))
		case "log", "":
			reg.RegisterSender(logsender.NewSenderFactory(channel))
		default:
			return nil, fmt.Errorf("unsupported sender mode: %s", senderMode)
		}
	}

	return reg, nil
}
