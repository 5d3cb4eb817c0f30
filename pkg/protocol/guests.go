package protocol

import (
	"context"
	"time"

	"github.com/convoca/convoca/pkg/models"
)

// GuestStore is the engine's only access to guest and event data. The engine
// never reaches for ambient queries; everything flows through this interface
// so it is testable with fakes.
type GuestStore interface {
	// Guests returns every guest associated with the event.
	Guests(ctx context.Context, eventID string) ([]models.GuestRecord, error)

	// EventDate returns the event's date, used for the relative-time
	// condition fields.
	EventDate(ctx context.Context, eventID string) (time.Time, error)
}
