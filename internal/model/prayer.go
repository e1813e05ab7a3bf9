package model

import "time"

// PrayerType identifies the obligation a Prayer row tracks.
type PrayerType string

const (
	PrayerFajr    PrayerType = "fajr"
	PrayerDhuhr   PrayerType = "dhuhr"
	PrayerAsr     PrayerType = "asr"
	PrayerMaghrib PrayerType = "maghrib"
	PrayerIsha    PrayerType = "isha"

	// completion bookkeeping only, never assigned a time window
	PrayerZakaat       PrayerType = "zakaat"
	PrayerJummah       PrayerType = "jummah"
	PrayerFasting      PrayerType = "fasting"
	PrayerQuranTilawat PrayerType = "quran_tilawat"
	PrayerHajj         PrayerType = "hajj"
)

// WindowedPrayers lists the five daily prayers in chronological order.
// Only these get windows and lifecycle statuses.
var WindowedPrayers = []PrayerType{
	PrayerFajr, PrayerDhuhr, PrayerAsr, PrayerMaghrib, PrayerIsha,
}

// Windowed reports whether t is one of the five daily prayers.
func (t PrayerType) Windowed() bool {
	for _, p := range WindowedPrayers {
		if t == p {
			return true
		}
	}
	return false
}

// PrayerStatus is the lifecycle state of a prayer relative to its window.
type PrayerStatus string

const (
	StatusFuture  PrayerStatus = "future"
	StatusOngoing PrayerStatus = "ongoing"
	StatusMissed  PrayerStatus = "missed"
)

// CompletionStatus records how a prayer was (or was not) performed.
type CompletionStatus string

const (
	CompletionJamaat        CompletionStatus = "jamaat"
	CompletionWithoutJamaat CompletionStatus = "without_jamaat"
	CompletionMissed        CompletionStatus = "missed"
	CompletionQada          CompletionStatus = "qada"
)

// Prayer is one scheduled instance of an obligation for a user on a date.
// Rows are immutable once created.
type Prayer struct {
	ID          int        `db:"id"           json:"id"`
	UserID      int        `db:"user_id"      json:"user_id"`
	PrayerType  PrayerType `db:"prayer_type"  json:"prayer_type"`
	PrayerDate  time.Time  `db:"prayer_date"  json:"prayer_date"`
	PrayerTime  string     `db:"prayer_time"  json:"prayer_time"` // "HH:MM" wall clock
	LocationLat *float64   `db:"location_lat" json:"location_lat"`
	LocationLng *float64   `db:"location_lng" json:"location_lng"`
	Timezone    string     `db:"timezone"     json:"timezone"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// PrayerCompletion is the single record of a user performing or missing a
// Prayer. At most one exists per (user, prayer); the only permitted update
// is the missed -> qada transition.
type PrayerCompletion struct {
	ID       int              `db:"id"        json:"id"`
	UserID   int              `db:"user_id"   json:"user_id"`
	PrayerID int              `db:"prayer_id" json:"prayer_id"`
	Status   CompletionStatus `db:"status"    json:"status"`
	MarkedAt *time.Time       `db:"marked_at" json:"marked_at"`
	Notes    *string          `db:"notes"     json:"notes"`
}
