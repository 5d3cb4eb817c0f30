// Package registry provides factory-based registration of channel senders.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/protocol"
)

// Registry holds sender factories keyed by channel.
type Registry struct {
	logger          *slog.Logger
	senderFactories map[string]protocol.SenderFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		senderFactories: make(map[string]protocol.SenderFactory),
	}
}

// RegisterSender registers a factory under its channel ID, replacing any
// previous registration for that channel.
func (r *Registry) RegisterSender(factory protocol.SenderFactory) {
	r.senderFactories[factory.ID()] = factory
}

// CreateSender builds a sender for the given channel.
func (r *Registry) CreateSender(channel models.ActionType, config map[string]any) (protocol.Sender, error) {
	factory, ok := r.senderFactories[string(channel)]
	if !ok {
		return nil, fmt.Errorf("channel %q not registered", channel)
	}

	return factory.Create(config, r.logger)
}

// Channels returns the registered channel IDs.
func (r *Registry) Channels() []string {
	channels := make([]string, 0, len(r.senderFactories))
	for channel := range r.senderFactories {
		channels = append(channels, channel)
	}

	return channels
}

// HealthCheck reports whether any channels are registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.senderFactories) == 0 {
		return "No channel senders registered", false
	}

	return fmt.Sprintf("%d channel senders registered", len(r.senderFactories)), true
}
