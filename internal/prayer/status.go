package prayer

import (
	"time"

	"github.com/noorhub/salahtrack/internal/model"
)

// Classify maps an instant against a window. Pure: identical inputs always
// give identical output, and the result is exactly one of future, ongoing,
// missed. now is normalized into the window's zone before comparing, so a
// caller in a different zone is converted, never silently ignored.
func Classify(w Window, now time.Time) model.PrayerStatus {
	now = now.In(w.Start.Location())
	switch {
	case now.Before(w.Start):
		return model.StatusFuture
	case now.After(w.End):
		return model.StatusMissed
	default:
		// inclusive on both ends
		return model.StatusOngoing
	}
}
