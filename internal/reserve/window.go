// Package reserve holds the reservation window arithmetic and the batch
// request builder. Overlap checks run client-side because the asset database
// accepts overlapping reservations without complaint.
package reserve

import (
	"fmt"
	"time"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

// Window is a half-open interval [Start, End) during which a machine is held.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate reports a configuration error when the window is inverted or
// empty.
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window start %s must be before end %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether two half-open windows intersect. Touching
// endpoints do not overlap: a reservation ending at 11:00 leaves the machine
// free for one starting at 11:00.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Reservation is one hold on a machine. Comment carries the work-item tag on
// its first line followed by any free-text annotation.
type Reservation struct {
	Machine string
	User    string
	Window  Window
	Comment string
}

// Conflicts reports whether any existing reservation overlaps the proposed
// window. The existing list is scanned linearly and may be in any order.
func Conflicts(existing []Reservation, proposed Window) bool {
	for _, r := range existing {
		if r.Window.Overlaps(proposed) {
			return true
		}
	}
	return false
}

// Available reports whether the machine can take the proposed window: it
// must be flagged reservable and free of conflicting reservations.
func Available(record inventory.MachineRecord, existing []Reservation, proposed Window) bool {
	return record.Reservable && !Conflicts(existing, proposed)
}
