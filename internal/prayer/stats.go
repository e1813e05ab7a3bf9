package prayer

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/cache"
	"github.com/noorhub/salahtrack/internal/model"
)

// DashboardStats aggregates the user's last 30 days of completions.
type DashboardStats struct {
	From           string  `json:"from"`
	To             string  `json:"to"`
	Completed      int     `json:"completed"`
	Jamaat         int     `json:"jamaat"`
	WithoutJamaat  int     `json:"without_jamaat"`
	Missed         int     `json:"missed"`
	Qada           int     `json:"qada"`
	CompletionRate float64 `json:"completion_rate"`
}

// WeekDay is one day's completion summary in the weekly calendar.
type WeekDay struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

// GetDashboardStats returns aggregate completion counts for the 30 days up
// to now, served from the aggregate cache when fresh.
func (e *Engine) GetDashboardStats(ctx context.Context, userID int, now time.Time) (*DashboardStats, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return nil, invalid("unknown timezone %q", user.Timezone)
	}
	to := truncateToDate(now.In(loc), loc)
	from := to.AddDate(0, 0, -29)

	key := cache.DashboardKey(userID)
	if raw, ok := e.cache.Get(ctx, key); ok {
		var stats DashboardStats
		if err := json.Unmarshal([]byte(raw), &stats); err == nil {
			return &stats, nil
		}
	}

	counts, err := e.store.CountCompletionsByStatus(userID, from, to)
	if err != nil {
		return nil, persistence(err)
	}

	stats := &DashboardStats{
		From:          from.Format("2006-01-02"),
		To:            to.Format("2006-01-02"),
		Jamaat:        counts[model.CompletionJamaat],
		WithoutJamaat: counts[model.CompletionWithoutJamaat],
		Missed:        counts[model.CompletionMissed],
		Qada:          counts[model.CompletionQada],
	}
	stats.Completed = stats.Jamaat + stats.WithoutJamaat + stats.Qada
	if total := stats.Completed + stats.Missed; total > 0 {
		stats.CompletionRate = math.Round(float64(stats.Completed)/float64(total)*10000) / 100
	}

	if raw, err := json.Marshal(stats); err == nil {
		e.cache.Set(ctx, key, string(raw), cache.DashboardTTL)
	} else {
		log.Error().Err(err).Msg("failed to cache dashboard stats")
	}
	return stats, nil
}

// GetWeeklyCalendar returns per-day completion counts for the seven days
// starting at weekStart (YYYY-MM-DD).
func (e *Engine) GetWeeklyCalendar(ctx context.Context, userID int, weekStart string) ([]WeekDay, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return nil, invalid("unknown timezone %q", user.Timezone)
	}
	start, err := time.ParseInLocation("2006-01-02", weekStart, loc)
	if err != nil {
		return nil, invalid("invalid week start, use YYYY-MM-DD")
	}
	end := start.AddDate(0, 0, 6)

	key := cache.CalendarKey(userID, start.Format("2006-01-02"))
	if raw, ok := e.cache.Get(ctx, key); ok {
		var days []WeekDay
		if err := json.Unmarshal([]byte(raw), &days); err == nil {
			return days, nil
		}
	}

	perDay, err := e.store.CompletionsPerDay(userID, start, end)
	if err != nil {
		return nil, persistence(err)
	}

	days := make([]WeekDay, 0, 7)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dayStr := d.Format("2006-01-02")
		days = append(days, WeekDay{Date: dayStr, Completed: perDay[dayStr]})
	}

	if raw, err := json.Marshal(days); err == nil {
		e.cache.Set(ctx, key, string(raw), cache.CalendarTTL)
	}
	return days, nil
}
