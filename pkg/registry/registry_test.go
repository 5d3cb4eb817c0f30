package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoca/convoca/pkg/models"
	logsender "github.com/convoca/convoca/pkg/senders/log"
)

func TestRegistry_CreateSender(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterSender(logsender.NewSenderFactory(models.ActionTypeEmail))
	registry.RegisterSender(logsender.NewSenderFactory(models.ActionTypeSMS))

	sender, err := registry.CreateSender(models.ActionTypeEmail, nil)
	require.NoError(t, err)
	assert.NotNil(t, sender)

	_, err = registry.CreateSender(models.ActionTypeTelegram, nil)
	assert.Error(t, err)
}

func TestRegistry_Channels(t *testing.T) {
	registry := NewRegistry(slog.Default())
	assert.Empty(t, registry.Channels())

	registry.RegisterSender(logsender.NewSenderFactory(models.ActionTypeEmail))
	registry.RegisterSender(logsender.NewSenderFactory(models.ActionTypeWhatsApp))

	channels := registry.Channels()
	assert.Len(t, channels, 2)
	assert.Contains(t, channels, "email")
	assert.Contains(t, channels, "whatsapp")
}

func TestRegistry_HealthCheck(t *testing.T) {
	registry := NewRegistry(slog.Default())

	message, healthy := registry.HealthCheck()
	assert.False(t, healthy)
	assert.Equal(t, "No channel senders registered", message)

	registry.RegisterSender(logsender.NewSenderFactory(models.ActionTypeEmail))

	message, healthy = registry.HealthCheck()
	assert.True(t, healthy)
	assert.Equal(t, "1 channel senders registered", message)
}
