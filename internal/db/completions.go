package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/model"
)

// fetches the completion row for (user, prayer). Returns nil, sql.ErrNoRows if none.
func (s *pgStore) GetCompletionByPrayer(userID, prayerID int) (*model.PrayerCompletion, error) {
	var c model.PrayerCompletion
	query := `
	SELECT id, user_id, prayer_id, status, marked_at, notes
	FROM prayer_completions
	WHERE user_id = $1 AND prayer_id = $2;
	`
	err := s.db.Get(&c, query, userID, prayerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Msg("failed to get prayer completion")
		return nil, err
	}
	return &c, nil
}

// fetches completions for a set of prayers in one query, keyed by prayer ID.
func (s *pgStore) GetCompletionsForPrayers(userID int, prayerIDs []int) (map[int]model.PrayerCompletion, error) {
	result := make(map[int]model.PrayerCompletion, len(prayerIDs))
	if len(prayerIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
	SELECT id, user_id, prayer_id, status, marked_at, notes
	FROM prayer_completions
	WHERE user_id = ? AND prayer_id IN (?);
	`, userID, prayerIDs)
	if err != nil {
		return nil, err
	}

	var rows []model.PrayerCompletion
	if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
		log.Error().Msg("failed to get completions for prayers")
		return nil, err
	}
	for _, c := range rows {
		result[c.PrayerID] = c
	}
	return result, nil
}

// inserts a completion row. The unique index on (user_id, prayer_id) makes
// this an atomic check-and-insert: returns false when a row already existed,
// leaving the existing row untouched.
func (s *pgStore) CreateCompletion(c *model.PrayerCompletion) (bool, error) {
	query := `
	INSERT INTO prayer_completions (user_id, prayer_id, status, marked_at, notes)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, prayer_id) DO NOTHING
	RETURNING id;
	`
	err := s.db.QueryRow(query, c.UserID, c.PrayerID, c.Status, c.MarkedAt, c.Notes).Scan(&c.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// conflict: someone else completed it first
			return false, nil
		}
		log.Error().Msg("failed to create prayer completion")
		return false, err
	}
	return true, nil
}

// flips a missed completion to qada and stamps marked_at. The status guard in
// the WHERE clause is what restricts the mutation to the missed -> qada
// transition; returns false if the row is absent or not missed.
func (s *pgStore) ConvertMissedToQada(userID, prayerID int, markedAt time.Time) (bool, error) {
	query := `
	UPDATE prayer_completions
	SET status = $3,
	marked_at = $4
	WHERE user_id = $1 AND prayer_id = $2 AND status = $5;
	`
	res, err := s.db.Exec(query, userID, prayerID, model.CompletionQada, markedAt, model.CompletionMissed)
	if err != nil {
		log.Error().Msg("failed to convert completion to qada")
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// counts the user's completions per status over a date range (inclusive).
func (s *pgStore) CountCompletionsByStatus(userID int, from, to time.Time) (map[model.CompletionStatus]int, error) {
	query := `
	SELECT c.status, count(*) AS n
	FROM prayer_completions c
	JOIN prayers p ON p.id = c.prayer_id
	WHERE c.user_id = $1 AND p.prayer_date BETWEEN $2 AND $3
	GROUP BY c.status;
	`
	var rows []struct {
		Status model.CompletionStatus `db:"status"`
		N      int                    `db:"n"`
	}
	if err := s.db.Select(&rows, query, userID, from.Format("2006-01-02"), to.Format("2006-01-02")); err != nil {
		log.Error().Msg("failed to count completions by status")
		return nil, err
	}
	counts := make(map[model.CompletionStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// returns, per day in the range, how many prayers the user performed
// (missed rows are excluded). Keys are YYYY-MM-DD strings.
func (s *pgStore) CompletionsPerDay(userID int, from, to time.Time) (map[string]int, error) {
	query := `
	SELECT to_char(p.prayer_date, 'YYYY-MM-DD') AS day, count(*) AS n
	FROM prayer_completions c
	JOIN prayers p ON p.id = c.prayer_id
	WHERE c.user_id = $1
	  AND p.prayer_date BETWEEN $2 AND $3
	  AND c.status <> $4
	GROUP BY day;
	`
	var rows []struct {
		Day string `db:"day"`
		N   int    `db:"n"`
	}
	if err := s.db.Select(&rows, query, userID, from.Format("2006-01-02"), to.Format("2006-01-02"), model.CompletionMissed); err != nil {
		log.Error().Msg("failed to count completions per day")
		return nil, err
	}
	perDay := make(map[string]int, len(rows))
	for _, r := range rows {
		perDay[r.Day] = r.N
	}
	return perDay, nil
}
