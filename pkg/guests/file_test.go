package guests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoca/convoca/pkg/models"
)

func TestFileStore(t *testing.T) {
	store := NewFileStore(t.TempDir())
	date := time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC)

	err := store.SaveEvent(context.Background(), "event-1", "Launch party", date, []models.GuestRecord{
		{ID: "g1", Name: "Ana", RSVPStatus: models.RSVPConfirmed},
		{ID: "g2", Name: "Bruno", RSVPStatus: models.RSVPPending},
	})
	require.NoError(t, err)

	guests, err := store.Guests(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, guests, 2)
	assert.Equal(t, "event-1", guests[0].EventID, "missing event ids are filled in on load")

	loaded, err := store.EventDate(context.Background(), "event-1")
	require.NoError(t, err)
	assert.True(t, loaded.Equal(date))
}

func TestFileStore_EventNotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Guests(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = store.EventDate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}
