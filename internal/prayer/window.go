package prayer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noorhub/salahtrack/internal/model"
)

// Window is the closed interval during which a prayer may validly be
// performed. Both bounds carry the user's timezone.
type Window struct {
	Start time.Time
	End   time.Time
}

// Anchors holds a day's anchor times as "HH:MM" local strings. Empty fields
// mean the provider omitted them. NextFajr, when known, is the following
// day's Fajr time and closes the Isha window.
type Anchors struct {
	Fajr     string
	Sunrise  string
	Dhuhr    string
	Asr      string
	Maghrib  string
	Isha     string
	NextFajr string
}

// anchorRef names one anchor slot, possibly on the following day.
type anchorRef struct {
	name      string
	dayOffset int
}

// windowRule declares where a prayer's window ends: the end anchors are
// tried in order, and the fallback duration from the start is used when
// none of them is available.
type windowRule struct {
	ends     []anchorRef
	fallback time.Duration
}

// A prayer's window conventionally ends when the next prayer begins. The
// fallbacks keep the window deterministic and non-null when the provider
// omits an anchor.
var windowRules = map[model.PrayerType]windowRule{
	model.PrayerFajr:    {ends: []anchorRef{{name: "sunrise"}, {name: "dhuhr"}}, fallback: 6 * time.Hour},
	model.PrayerDhuhr:   {ends: []anchorRef{{name: "asr"}}, fallback: 3 * time.Hour},
	model.PrayerAsr:     {ends: []anchorRef{{name: "maghrib"}}, fallback: 2 * time.Hour},
	model.PrayerMaghrib: {ends: []anchorRef{{name: "isha"}}, fallback: 30 * time.Minute},
	model.PrayerIsha:    {ends: []anchorRef{{name: "fajr", dayOffset: 1}}, fallback: 8 * time.Hour},
}

// startAnchor maps each windowed prayer to its own anchor slot.
var startAnchor = map[model.PrayerType]string{
	model.PrayerFajr:    "fajr",
	model.PrayerDhuhr:   "dhuhr",
	model.PrayerAsr:     "asr",
	model.PrayerMaghrib: "maghrib",
	model.PrayerIsha:    "isha",
}

func (a Anchors) lookup(ref anchorRef) string {
	switch ref.name {
	case "fajr":
		if ref.dayOffset == 1 {
			return a.NextFajr
		}
		return a.Fajr
	case "sunrise":
		return a.Sunrise
	case "dhuhr":
		return a.Dhuhr
	case "asr":
		return a.Asr
	case "maghrib":
		return a.Maghrib
	case "isha":
		return a.Isha
	}
	return ""
}

// ComputeWindows turns a day's anchors into one window per windowed prayer,
// in the given location. Prayers whose own anchor is missing are skipped.
// Every returned window satisfies start <= end.
func ComputeWindows(anchors Anchors, date time.Time, loc *time.Location) (map[model.PrayerType]Window, error) {
	windows := make(map[model.PrayerType]Window, len(model.WindowedPrayers))

	for _, pt := range model.WindowedPrayers {
		raw := anchors.lookup(anchorRef{name: startAnchor[pt]})
		if raw == "" {
			continue
		}
		start, err := ParseClock(raw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("bad %s anchor: %w", pt, err)
		}

		rule := windowRules[pt]
		end := time.Time{}
		for _, ref := range rule.ends {
			endRaw := anchors.lookup(ref)
			if endRaw == "" {
				continue
			}
			candidate, err := ParseClock(endRaw, date.AddDate(0, 0, ref.dayOffset), loc)
			if err != nil {
				return nil, fmt.Errorf("bad %s anchor: %w", ref.name, err)
			}
			end = candidate
			break
		}
		if end.IsZero() || end.Before(start) {
			end = start.Add(rule.fallback)
		}

		windows[pt] = Window{Start: start, End: end}
	}

	return windows, nil
}

// AnchorsFromPrayers rebuilds a day's anchors from persisted prayer rows.
// Sunrise is not persisted, so Fajr's window falls through to the Dhuhr
// anchor when windows are computed from rows alone.
func AnchorsFromPrayers(prayers []model.Prayer) Anchors {
	var a Anchors
	for _, p := range prayers {
		switch p.PrayerType {
		case model.PrayerFajr:
			a.Fajr = p.PrayerTime
		case model.PrayerDhuhr:
			a.Dhuhr = p.PrayerTime
		case model.PrayerAsr:
			a.Asr = p.PrayerTime
		case model.PrayerMaghrib:
			a.Maghrib = p.PrayerTime
		case model.PrayerIsha:
			a.Isha = p.PrayerTime
		}
	}
	return a
}

// ParseClock parses a wall-clock string like "15:02" or "15:02 (BST)" into
// an instant on the given date in the given location.
func ParseClock(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	// Strip timezone suffix like " (BST)" that the provider sometimes appends.
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %q", raw)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("clock value out of range: %q", raw)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, loc), nil
}
