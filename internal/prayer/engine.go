package prayer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/cache"
	"github.com/noorhub/salahtrack/internal/db"
	"github.com/noorhub/salahtrack/internal/model"
	"github.com/noorhub/salahtrack/internal/timings"
)

// Provider fetches a day's anchor times for a location. Failures are
// treated as "no data" by the engine, never as a fault.
type Provider interface {
	Fetch(ctx context.Context, lat, lng float64, date time.Time, method int) (*timings.Timings, error)
}

// Notifier pushes completion events to companion clients. Optional.
type Notifier interface {
	PublishCompletion(userID int, prayerType model.PrayerType, status model.CompletionStatus)
}

// Engine is the prayer time state engine. It is request-scoped and
// stateless between calls apart from its collaborators.
type Engine struct {
	store    db.Store
	cache    cache.Cache
	provider Provider
	notifier Notifier
}

func NewEngine(store db.Store, c cache.Cache, provider Provider, notifier Notifier) *Engine {
	return &Engine{store: store, cache: c, provider: provider, notifier: notifier}
}

// PrayerView is one prayer's state as returned to the web layer. The
// can_complete / can_mark_qada flags are a function of now and are never
// cached.
type PrayerView struct {
	Prayer      model.Prayer            `json:"prayer"`
	WindowStart time.Time               `json:"window_start"`
	WindowEnd   time.Time               `json:"window_end"`
	Status      model.PrayerStatus      `json:"status"`
	Completed   bool                    `json:"completed"`
	CanComplete bool                    `json:"can_complete"`
	CanMarkQada bool                    `json:"can_mark_qada"`
	Completion  *model.PrayerCompletion `json:"completion,omitempty"`
}

// DayTimes is the result of GetPrayerTimes. Degraded is set when the
// provider was unreachable and the times were reused from the most recent
// previously fetched day.
type DayTimes struct {
	Date     string       `json:"date"`
	Timezone string       `json:"timezone"`
	Degraded bool         `json:"degraded"`
	Prayers  []PrayerView `json:"prayers"`
}

// GetPrayerTimes returns the user's five prayers for a date with windows,
// lifecycle status and action flags. dateStr is YYYY-MM-DD, or empty for
// the current date in the user's timezone.
func (e *Engine) GetPrayerTimes(ctx context.Context, userID int, dateStr string, now time.Time) (*DayTimes, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return nil, invalid("unknown timezone %q", user.Timezone)
	}
	// every instant entering the engine becomes aware in the user's zone
	now = now.In(loc)

	var date time.Time
	if dateStr == "" {
		date = truncateToDate(now, loc)
	} else {
		date, err = time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			return nil, invalid("invalid date format, use YYYY-MM-DD")
		}
	}

	if dateBefore(date, user.CreatedAt.In(loc)) {
		return nil, ErrOutOfRange
	}

	prayers, anchors, degraded, err := e.prayersForDate(ctx, user, date, loc)
	if err != nil {
		return nil, err
	}

	windows, err := ComputeWindows(anchors, date, loc)
	if err != nil {
		return nil, invalid("provider returned malformed anchor times: %v", err)
	}

	e.sweepMissed(prayers, windows, now)

	views, err := e.buildViews(user, prayers, windows, now)
	if err != nil {
		return nil, err
	}

	return &DayTimes{
		Date:     date.Format("2006-01-02"),
		Timezone: user.Timezone,
		Degraded: degraded,
		Prayers:  views,
	}, nil
}

// CompletePrayer records an on-time or late performance. inJamaat selects
// congregational vs individual; a prayer whose window has already elapsed is
// recorded as missed with no marked_at, which is the entry point for a later
// qada conversion.
func (e *Engine) CompletePrayer(ctx context.Context, userID, prayerID int, now time.Time, inJamaat bool, notes *string) (*model.PrayerCompletion, error) {
	user, p, loc, err := e.getUserAndPrayer(userID, prayerID)
	if err != nil {
		return nil, err
	}
	now = now.In(loc)

	if dateBefore(p.PrayerDate, user.CreatedAt.In(loc)) {
		return nil, ErrOutOfRange
	}

	completion := &model.PrayerCompletion{
		UserID:   userID,
		PrayerID: prayerID,
		Notes:    notes,
	}

	if p.PrayerType.Windowed() {
		w, err := e.windowFor(ctx, user, p, loc)
		if err != nil {
			return nil, err
		}
		switch Classify(*w, now) {
		case model.StatusFuture:
			return nil, ErrTooEarly
		case model.StatusOngoing:
			completion.Status = model.CompletionWithoutJamaat
			if inJamaat {
				completion.Status = model.CompletionJamaat
			}
			completion.MarkedAt = &now
		case model.StatusMissed:
			// a missed prayer is never stamped with a false completion time
			completion.Status = model.CompletionMissed
			completion.MarkedAt = nil
		}
	} else {
		// observances without windows are plain bookkeeping
		completion.Status = model.CompletionWithoutJamaat
		if inJamaat {
			completion.Status = model.CompletionJamaat
		}
		completion.MarkedAt = &now
	}

	created, err := e.store.CreateCompletion(completion)
	if err != nil {
		return nil, persistence(err)
	}
	if !created {
		return nil, ErrAlreadyCompleted
	}

	log.Info().
		Int("user_id", userID).
		Int("prayer_id", prayerID).
		Str("status", string(completion.Status)).
		Msg("prayer completion recorded")

	e.invalidateAggregates(ctx, userID)
	e.publish(userID, p.PrayerType, completion.Status)
	return completion, nil
}

// MarkQada converts a missed prayer into a makeup performance. The only
// permitted mutation of a completion row is the missed -> qada transition.
func (e *Engine) MarkQada(ctx context.Context, userID, prayerID int, now time.Time) (*model.PrayerCompletion, error) {
	user, p, loc, err := e.getUserAndPrayer(userID, prayerID)
	if err != nil {
		return nil, err
	}
	now = now.In(loc)

	if dateBefore(p.PrayerDate, user.CreatedAt.In(loc)) {
		return nil, ErrBeforeAccountCreation
	}

	existing, err := e.store.GetCompletionByPrayer(userID, prayerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence(err)
	}

	if existing != nil {
		if existing.Status != model.CompletionMissed {
			return nil, ErrNotEligibleForQada
		}
		return e.convertToQada(ctx, user, p, existing, now)
	}

	// no record yet: allowed only when the window has fully elapsed
	if !p.PrayerType.Windowed() {
		return nil, ErrNotEligibleForQada
	}
	w, err := e.windowFor(ctx, user, p, loc)
	if err != nil {
		return nil, err
	}
	if Classify(*w, now) != model.StatusMissed {
		return nil, ErrNotEligibleForQada
	}

	completion := &model.PrayerCompletion{
		UserID:   userID,
		PrayerID: prayerID,
		Status:   model.CompletionQada,
		MarkedAt: &now,
	}
	created, err := e.store.CreateCompletion(completion)
	if err != nil {
		return nil, persistence(err)
	}
	if !created {
		// lost a race with the sweep or another request; the row it wrote
		// is qada-eligible only if it recorded a miss
		raced, err := e.store.GetCompletionByPrayer(userID, prayerID)
		if err != nil {
			return nil, persistence(err)
		}
		if raced.Status != model.CompletionMissed {
			return nil, ErrNotEligibleForQada
		}
		return e.convertToQada(ctx, user, p, raced, now)
	}

	log.Info().Int("user_id", userID).Int("prayer_id", prayerID).Msg("qada completion recorded")
	e.invalidateAggregates(ctx, userID)
	e.publish(userID, p.PrayerType, model.CompletionQada)
	return completion, nil
}

// SweepMissedToday backfills missed completions for windows that have fully
// elapsed today with no action, and reports how many rows it created.
func (e *Engine) SweepMissedToday(ctx context.Context, userID int, now time.Time) (int, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return 0, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return 0, invalid("unknown timezone %q", user.Timezone)
	}
	now = now.In(loc)
	date := truncateToDate(now, loc)

	prayers, err := e.store.GetPrayersForDate(userID, date)
	if err != nil {
		return 0, persistence(err)
	}
	if len(prayers) == 0 {
		return 0, nil
	}

	anchors := e.anchorsFor(ctx, user, date, prayers)
	windows, err := ComputeWindows(anchors, date, loc)
	if err != nil {
		return 0, invalid("stored anchor times are malformed: %v", err)
	}
	return e.sweepMissed(prayers, windows, now), nil
}

func (e *Engine) convertToQada(ctx context.Context, user *model.User, p *model.Prayer, existing *model.PrayerCompletion, now time.Time) (*model.PrayerCompletion, error) {
	converted, err := e.store.ConvertMissedToQada(user.ID, p.ID, now)
	if err != nil {
		return nil, persistence(err)
	}
	if !converted {
		// guarded update found the row no longer missed
		return nil, ErrNotEligibleForQada
	}
	existing.Status = model.CompletionQada
	existing.MarkedAt = &now

	log.Info().Int("user_id", user.ID).Int("prayer_id", p.ID).Msg("missed prayer converted to qada")
	e.invalidateAggregates(ctx, user.ID)
	e.publish(user.ID, p.PrayerType, model.CompletionQada)
	return existing, nil
}

// prayersForDate returns the five prayer rows for (user, date), creating
// them from provider data on first request. On provider failure it reuses
// the most recent previously fetched day's times and reports degraded=true.
func (e *Engine) prayersForDate(ctx context.Context, user *model.User, date time.Time, loc *time.Location) ([]model.Prayer, Anchors, bool, error) {
	existing, err := e.store.GetPrayersForDate(user.ID, date)
	if err != nil {
		return nil, Anchors{}, false, persistence(err)
	}
	if len(existing) > 0 {
		return existing, e.anchorsFor(ctx, user, date, existing), false, nil
	}

	lat, lng, ok := user.Location()
	if !ok {
		return nil, Anchors{}, false, invalid("user has no location configured")
	}

	degraded := false
	t, err := e.fetchTimings(ctx, user, lat, lng, date)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("timings provider failed, trying fallback")
		t, err = e.fallbackTimings(user)
		if err != nil {
			return nil, Anchors{}, false, ErrProviderUnavailable
		}
		degraded = true
	}

	anchors := anchorsFromTimings(t)
	anchors.NextFajr = e.lookupNextFajr(ctx, user, date)
	rows := buildPrayerRows(user, date, anchors, lat, lng)
	if len(rows) == 0 {
		return nil, Anchors{}, false, ErrProviderUnavailable
	}

	created, err := e.store.CreatePrayers(rows)
	if err != nil {
		// a concurrent request may have created them first
		existing, lookupErr := e.store.GetPrayersForDate(user.ID, date)
		if lookupErr == nil && len(existing) > 0 {
			return existing, anchors, degraded, nil
		}
		return nil, Anchors{}, false, persistence(err)
	}
	return created, anchors, degraded, nil
}

// fetchTimings consults the provider-response cache before calling out.
// Cache failures are absorbed; a miss race costing a duplicate fetch is
// acceptable since the result is identical.
func (e *Engine) fetchTimings(ctx context.Context, user *model.User, lat, lng float64, date time.Time) (*timings.Timings, error) {
	key := cache.ProviderKey(user.ID, date.Format("2006-01-02"), methodString(user.FiqhMethod), cache.GeoHash(lat, lng))

	if raw, ok := e.cache.Get(ctx, key); ok {
		var t timings.Timings
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			return &t, nil
		}
		log.Error().Str("key", key).Msg("discarding undecodable cached timings")
	}

	t, err := e.provider.Fetch(ctx, lat, lng, date, user.FiqhMethod)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(t); err == nil {
		e.cache.Set(ctx, key, string(raw), cache.ProviderTTL)
	}
	return t, nil
}

// fallbackTimings rebuilds anchors from the user's most recent prayer rows.
func (e *Engine) fallbackTimings(user *model.User) (*timings.Timings, error) {
	latest, err := e.store.LatestPrayerDate(user.ID)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.GetPrayersForDate(user.ID, latest)
	if err != nil || len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	a := AnchorsFromPrayers(rows)
	return &timings.Timings{
		Fajr: a.Fajr, Dhuhr: a.Dhuhr, Asr: a.Asr, Maghrib: a.Maghrib, Isha: a.Isha,
	}, nil
}

// anchorsFor prefers the cached provider payload (which still has Sunrise)
// and falls back to the persisted rows. Either way the following day's Fajr
// is resolved so the Isha window can end at it.
func (e *Engine) anchorsFor(ctx context.Context, user *model.User, date time.Time, rows []model.Prayer) Anchors {
	anchors := AnchorsFromPrayers(rows)
	if lat, lng, ok := user.Location(); ok {
		key := cache.ProviderKey(user.ID, date.Format("2006-01-02"), methodString(user.FiqhMethod), cache.GeoHash(lat, lng))
		if raw, ok := e.cache.Get(ctx, key); ok {
			var t timings.Timings
			if err := json.Unmarshal([]byte(raw), &t); err == nil {
				anchors = anchorsFromTimings(&t)
			}
		}
	}
	anchors.NextFajr = e.lookupNextFajr(ctx, user, date)
	return anchors
}

// lookupNextFajr resolves the following day's Fajr time from already
// persisted rows or the cached provider payload. Returns "" when neither is
// available, in which case the Isha window falls back to a fixed duration.
// No provider call is made: closing a window must not depend on the network.
func (e *Engine) lookupNextFajr(ctx context.Context, user *model.User, date time.Time) string {
	next := date.AddDate(0, 0, 1)

	rows, err := e.store.GetPrayersForDate(user.ID, next)
	if err == nil {
		for _, p := range rows {
			if p.PrayerType == model.PrayerFajr {
				return p.PrayerTime
			}
		}
	}

	if lat, lng, ok := user.Location(); ok {
		key := cache.ProviderKey(user.ID, next.Format("2006-01-02"), methodString(user.FiqhMethod), cache.GeoHash(lat, lng))
		if raw, ok := e.cache.Get(ctx, key); ok {
			var t timings.Timings
			if err := json.Unmarshal([]byte(raw), &t); err == nil {
				return t.Fajr
			}
		}
	}
	return ""
}

// sweepMissed inserts missed completions for elapsed, untouched windows.
// The atomic insert makes concurrent sweeps converge on one row.
func (e *Engine) sweepMissed(prayers []model.Prayer, windows map[model.PrayerType]Window, now time.Time) int {
	swept := 0
	for _, p := range prayers {
		w, ok := windows[p.PrayerType]
		if !ok || Classify(w, now) != model.StatusMissed {
			continue
		}
		created, err := e.store.CreateCompletion(&model.PrayerCompletion{
			UserID:   p.UserID,
			PrayerID: p.ID,
			Status:   model.CompletionMissed,
		})
		if err != nil {
			log.Error().Err(err).Int("prayer_id", p.ID).Msg("failed to sweep missed prayer")
			continue
		}
		if created {
			swept++
		}
	}
	return swept
}

func (e *Engine) buildViews(user *model.User, prayers []model.Prayer, windows map[model.PrayerType]Window, now time.Time) ([]PrayerView, error) {
	ids := make([]int, 0, len(prayers))
	for _, p := range prayers {
		ids = append(ids, p.ID)
	}
	completions, err := e.store.GetCompletionsForPrayers(user.ID, ids)
	if err != nil {
		return nil, persistence(err)
	}

	views := make([]PrayerView, 0, len(prayers))
	for _, p := range prayers {
		w, ok := windows[p.PrayerType]
		if !ok {
			continue
		}
		status := Classify(w, now)

		var completion *model.PrayerCompletion
		if c, found := completions[p.ID]; found {
			c := c
			completion = &c
		}

		views = append(views, PrayerView{
			Prayer:      p,
			WindowStart: w.Start,
			WindowEnd:   w.End,
			Status:      status,
			Completed:   completion != nil,
			CanComplete: status != model.StatusFuture,
			CanMarkQada: canMarkQada(status, completion),
			Completion:  completion,
		})
	}
	return views, nil
}

// canMarkQada: a qada needs either a recorded miss, or an elapsed window
// with no record at all.
func canMarkQada(status model.PrayerStatus, completion *model.PrayerCompletion) bool {
	if completion != nil {
		return completion.Status == model.CompletionMissed
	}
	return status == model.StatusMissed
}

func (e *Engine) getUser(userID int) (*model.User, error) {
	user, err := e.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	return user, nil
}

func (e *Engine) getUserAndPrayer(userID, prayerID int) (*model.User, *model.Prayer, *time.Location, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := e.store.GetPrayerByID(prayerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, ErrNotFound
		}
		return nil, nil, nil, persistence(err)
	}
	if p.UserID != userID {
		// a prayer is owned by the account that created it
		return nil, nil, nil, ErrNotFound
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, nil, nil, invalid("unknown timezone %q", p.Timezone)
	}
	return user, p, loc, nil
}

// windowFor recomputes one prayer's window from the day's rows (plus the
// cached provider payload when available, for Sunrise).
func (e *Engine) windowFor(ctx context.Context, user *model.User, p *model.Prayer, loc *time.Location) (*Window, error) {
	rows, err := e.store.GetPrayersForDate(user.ID, p.PrayerDate)
	if err != nil {
		return nil, persistence(err)
	}
	anchors := e.anchorsFor(ctx, user, p.PrayerDate, rows)
	windows, err := ComputeWindows(anchors, p.PrayerDate, loc)
	if err != nil {
		return nil, invalid("stored anchor times are malformed: %v", err)
	}
	w, ok := windows[p.PrayerType]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (e *Engine) invalidateAggregates(ctx context.Context, userID int) {
	e.cache.Delete(ctx, cache.DashboardKey(userID))
	e.cache.DeletePattern(ctx, cache.UserCalendarPattern(userID))
}

func (e *Engine) publish(userID int, pt model.PrayerType, status model.CompletionStatus) {
	if e.notifier == nil {
		return
	}
	e.notifier.PublishCompletion(userID, pt, status)
}

func anchorsFromTimings(t *timings.Timings) Anchors {
	return Anchors{
		Fajr:    t.Fajr,
		Sunrise: t.Sunrise,
		Dhuhr:   t.Dhuhr,
		Asr:     t.Asr,
		Maghrib: t.Maghrib,
		Isha:    t.Isha,
	}
}

func buildPrayerRows(user *model.User, date time.Time, anchors Anchors, lat, lng float64) []model.Prayer {
	rows := make([]model.Prayer, 0, len(model.WindowedPrayers))
	for _, pt := range model.WindowedPrayers {
		raw := anchors.lookup(anchorRef{name: startAnchor[pt]})
		if raw == "" {
			continue
		}
		rows = append(rows, model.Prayer{
			UserID:      user.ID,
			PrayerType:  pt,
			PrayerDate:  date,
			PrayerTime:  cleanClock(raw),
			LocationLat: &lat,
			LocationLng: &lng,
			Timezone:    user.Timezone,
		})
	}
	return rows
}

// cleanClock strips a provider timezone suffix, keeping "HH:MM" for storage.
func cleanClock(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}
	return s
}

func methodString(method int) string {
	if method < 0 {
		return "default"
	}
	return strconv.Itoa(method)
}

func truncateToDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// dateBefore compares calendar dates only, ignoring zone offsets. Prayer
// dates come back from the store as bare dates; comparing instants against
// them misfires for zones west of UTC.
func dateBefore(a, b time.Time) bool {
	return a.Format("2006-01-02") < b.Format("2006-01-02")
}
