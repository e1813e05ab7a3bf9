package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/model"
)

// fetches a prayer by ID. Returns nil, sql.ErrNoRows if not found.
func (s *pgStore) GetPrayerByID(id int) (*model.Prayer, error) {
	var p model.Prayer
	query := `
	SELECT id, user_id, prayer_type, prayer_date, prayer_time,
	       location_lat, location_lng, timezone, created_at
	FROM prayers
	WHERE id = $1;
	`
	err := s.db.Get(&p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Msg("failed to get prayer by id")
		return nil, err
	}
	return &p, nil
}

// fetches all prayer rows for a user on a date, in chronological order.
func (s *pgStore) GetPrayersForDate(userID int, date time.Time) ([]model.Prayer, error) {
	var prayers []model.Prayer
	query := `
	SELECT id, user_id, prayer_type, prayer_date, prayer_time,
	       location_lat, location_lng, timezone, created_at
	FROM prayers
	WHERE user_id = $1 AND prayer_date = $2
	ORDER BY prayer_time;
	`
	if err := s.db.Select(&prayers, query, userID, date.Format("2006-01-02")); err != nil {
		log.Error().Msg("failed to get prayers for date")
		return nil, err
	}
	return prayers, nil
}

// inserts a batch of prayer rows in one transaction and returns them with IDs
// assigned. Prayer rows are immutable after this point.
func (s *pgStore) CreatePrayers(prayers []model.Prayer) ([]model.Prayer, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
	INSERT INTO prayers (user_id, prayer_type, prayer_date, prayer_time,
	                     location_lat, location_lng, timezone, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	RETURNING id, created_at;
	`
	out := make([]model.Prayer, 0, len(prayers))
	for _, p := range prayers {
		err := tx.QueryRow(query,
			p.UserID, p.PrayerType, p.PrayerDate.Format("2006-01-02"), p.PrayerTime,
			p.LocationLat, p.LocationLng, p.Timezone,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			log.Error().Str("prayer_type", string(p.PrayerType)).Msg("failed to create prayer")
			return nil, err
		}
		out = append(out, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// returns the most recent date the user has prayer rows for.
// Returns sql.ErrNoRows if the user has none at all.
func (s *pgStore) LatestPrayerDate(userID int) (time.Time, error) {
	var raw sql.NullTime
	query := `SELECT max(prayer_date) FROM prayers WHERE user_id = $1;`
	if err := s.db.Get(&raw, query, userID); err != nil {
		log.Error().Msg("failed to get latest prayer date")
		return time.Time{}, err
	}
	if !raw.Valid {
		return time.Time{}, sql.ErrNoRows
	}
	return raw.Time, nil
}
