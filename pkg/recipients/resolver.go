// Package recipients resolves an action's recipient filter against the guest
// list into the concrete set of guests to target.
package recipients

import (
	"log/slog"

	"github.com/convoca/convoca/pkg/models"
)

// Resolve filters guests by the action's recipient filter. It is pure and
// total: an unrecognized filter value falls back to all guests with a logged
// warning, since recipient selection errs toward sending rather than silently
// dropping an action.
func Resolve(filter models.RecipientFilter, guests []models.GuestRecord, logger *slog.Logger) []models.GuestRecord {
	var status models.RSVPStatus

	switch filter {
	case models.RecipientsAll:
		return guests
	case models.RecipientsConfirmed:
		status = models.RSVPConfirmed
	case models.RecipientsPending:
		status = models.RSVPPending
	case models.RecipientsDeclined:
		status = models.RSVPDeclined
	default:
		logger.Warn("Unrecognized recipient filter, targeting all guests", "filter", filter)

		return guests
	}

	matched := make([]models.GuestRecord, 0, len(guests))
	for _, guest := range guests {
		if guest.RSVPStatus == status {
			matched = append(matched, guest)
		}
	}

	return matched
}
