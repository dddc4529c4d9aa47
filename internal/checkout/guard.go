package checkout

import (
	"fmt"
	"time"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
)

// Rejection messages shown to guests.
const (
	msgNotAvailable = "This event is not available for booking"
	msgSalesEnded   = "Ticket sales have ended for this event"
)

// Availability is the inventory picture at the moment of checkout.
type Availability struct {
	Capacity     int
	Sold         int
	Remaining    int
	SalesCloseAt time.Time
}

// Guard decides whether quantity seats may be sold for event right now.
// sold is the paid ticket count. The cutoff boundary is inclusive: at exactly
// start minus the cutoff window sales are closed.
func Guard(event *models.Event, sold, quantity int, now time.Time) (Availability, error) {
	closeAt := event.SalesCloseAt()
	remaining := event.Capacity - sold
	if remaining < 0 {
		remaining = 0
	}
	avail := Availability{
		Capacity:     event.Capacity,
		Sold:         sold,
		Remaining:    remaining,
		SalesCloseAt: closeAt,
	}

	if event.Status != enums.EventStatusPublished {
		return avail, pkgerrors.New(pkgerrors.CodeValidation, msgNotAvailable)
	}
	if !now.Before(closeAt) {
		return avail, pkgerrors.New(pkgerrors.CodeValidation, msgSalesEnded).
			WithDetails(map[string]any{"sales_close_at": closeAt})
	}
	if quantity < 1 {
		return avail, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be at least 1")
	}
	if quantity > remaining {
		return avail, pkgerrors.New(pkgerrors.CodeValidation, remainingMessage(remaining)).
			WithDetails(map[string]any{"remaining": remaining, "requested": quantity})
	}
	return avail, nil
}

func remainingMessage(remaining int) string {
	noun := "tickets"
	if remaining == 1 {
		noun = "ticket"
	}
	return fmt.Sprintf("Only %d %s remaining", remaining, noun)
}
