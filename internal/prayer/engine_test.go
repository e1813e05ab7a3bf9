package prayer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noorhub/salahtrack/internal/cache"
	"github.com/noorhub/salahtrack/internal/db"
	"github.com/noorhub/salahtrack/internal/model"
	"github.com/noorhub/salahtrack/internal/timings"
)

// fakeStore is an in-memory db.Store for engine tests.
type fakeStore struct {
	mu          sync.Mutex
	users       map[int]*model.User
	prayers     map[int]model.Prayer
	completions map[int]model.PrayerCompletion // keyed by prayer ID
	nextID      int
}

var _ db.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int]*model.User),
		prayers:     make(map[int]model.Prayer),
		completions: make(map[int]model.PrayerCompletion),
		nextID:      1,
	}
}

func (s *fakeStore) CreateUser(email, hashed string, name *string, timezone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.users[id] = &model.User{ID: id, Email: email, HashedPassword: hashed, Name: name, Timezone: timezone}
	return id, nil
}

func (s *fakeStore) GetUserByEmail(email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetUserByID(id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) UpdateUserProfile(id int, name *string, timezone string, fiqhMethod int, lat, lng *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.Name, u.Timezone, u.FiqhMethod, u.LocationLat, u.LocationLng = name, timezone, fiqhMethod, lat, lng
	return nil
}

func (s *fakeStore) GetPrayerByID(id int) (*model.Prayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prayers[id]; ok {
		p := p
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetPrayersForDate(userID int, date time.Time) ([]model.Prayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := date.Format("2006-01-02")
	var out []model.Prayer
	for _, p := range s.prayers {
		if p.UserID == userID && p.PrayerDate.Format("2006-01-02") == day {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrayerTime < out[j].PrayerTime })
	return out, nil
}

func (s *fakeStore) CreatePrayers(prayers []model.Prayer) ([]model.Prayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Prayer, 0, len(prayers))
	for _, p := range prayers {
		p.ID = s.nextID
		s.nextID++
		p.CreatedAt = time.Now()
		s.prayers[p.ID] = p
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) LatestPrayerDate(userID int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	for _, p := range s.prayers {
		if p.UserID == userID && p.PrayerDate.After(latest) {
			latest = p.PrayerDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, sql.ErrNoRows
	}
	return latest, nil
}

func (s *fakeStore) GetCompletionByPrayer(userID, prayerID int) (*model.PrayerCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.completions[prayerID]; ok && c.UserID == userID {
		c := c
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetCompletionsForPrayers(userID int, prayerIDs []int) (map[int]model.PrayerCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]model.PrayerCompletion)
	for _, id := range prayerIDs {
		if c, ok := s.completions[id]; ok && c.UserID == userID {
			out[id] = c
		}
	}
	return out, nil
}

func (s *fakeStore) CreateCompletion(c *model.PrayerCompletion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.completions[c.PrayerID]; exists {
		return false, nil
	}
	c.ID = s.nextID
	s.nextID++
	s.completions[c.PrayerID] = *c
	return true, nil
}

func (s *fakeStore) ConvertMissedToQada(userID, prayerID int, markedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[prayerID]
	if !ok || c.UserID != userID || c.Status != model.CompletionMissed {
		return false, nil
	}
	c.Status = model.CompletionQada
	c.MarkedAt = &markedAt
	s.completions[prayerID] = c
	return true, nil
}

func (s *fakeStore) CountCompletionsByStatus(userID int, from, to time.Time) (map[model.CompletionStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[model.CompletionStatus]int)
	for _, c := range s.completions {
		if c.UserID == userID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func (s *fakeStore) CompletionsPerDay(userID int, from, to time.Time) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perDay := make(map[string]int)
	for _, c := range s.completions {
		if c.UserID != userID || c.Status == model.CompletionMissed {
			continue
		}
		if p, ok := s.prayers[c.PrayerID]; ok {
			perDay[p.PrayerDate.Format("2006-01-02")]++
		}
	}
	return perDay, nil
}

// fakeCache is a deterministic cache.Cache that ignores TTLs.
type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]string)} }

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}
func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) { c.data[key] = value }
func (c *fakeCache) Delete(_ context.Context, key string)                      { delete(c.data, key) }
func (c *fakeCache) DeletePattern(_ context.Context, pattern string) int {
	prefix := strings.TrimSuffix(pattern, "*")
	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

type fakeProvider struct {
	timings *timings.Timings
	err     error
	calls   int
}

func (p *fakeProvider) Fetch(_ context.Context, lat, lng float64, date time.Time, method int) (*timings.Timings, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.timings, nil
}

type fakeNotifier struct {
	events []model.CompletionStatus
}

func (n *fakeNotifier) PublishCompletion(_ int, _ model.PrayerType, status model.CompletionStatus) {
	n.events = append(n.events, status)
}

func testTimings() *timings.Timings {
	return &timings.Timings{
		Fajr:    "05:10",
		Sunrise: "06:32",
		Dhuhr:   "12:15",
		Asr:     "15:45",
		Maghrib: "18:20",
		Isha:    "19:50",
	}
}

func seedUser(store *fakeStore) *model.User {
	lat, lng := 24.7136, 46.6753
	u := &model.User{
		ID:          1,
		Email:       "user@example.com",
		Timezone:    "UTC",
		FiqhMethod:  2,
		LocationLat: &lat,
		LocationLng: &lng,
		CreatedAt:   time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	store.users[1] = u
	store.nextID = 2
	return u
}

func newTestEngine() (*Engine, *fakeStore, *fakeCache, *fakeProvider, *fakeNotifier) {
	store := newFakeStore()
	seedUser(store)
	c := newFakeCache()
	provider := &fakeProvider{timings: testTimings()}
	notifier := &fakeNotifier{}
	return NewEngine(store, c, provider, notifier), store, c, provider, notifier
}

func utc(h, m int) time.Time {
	return time.Date(2025, 3, 14, h, m, 0, 0, time.UTC)
}

func TestGetPrayerTimes_CreatesFiveRowsAndCachesProvider(t *testing.T) {
	engine, store, _, provider, _ := newTestEngine()
	ctx := context.Background()

	day, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)
	require.Len(t, day.Prayers, 5)
	assert.False(t, day.Degraded)
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, store.prayers, 5)

	// second request is served from the provider cache
	_, err = engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(7, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, store.prayers, 5)
}

func TestGetPrayerTimes_OngoingDhuhr(t *testing.T) {
	engine, _, _, _, _ := newTestEngine()

	day, err := engine.GetPrayerTimes(context.Background(), 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)

	var dhuhr *PrayerView
	for i := range day.Prayers {
		if day.Prayers[i].Prayer.PrayerType == model.PrayerDhuhr {
			dhuhr = &day.Prayers[i]
		}
	}
	require.NotNil(t, dhuhr)

	assert.Equal(t, model.StatusOngoing, dhuhr.Status)
	assert.True(t, dhuhr.CanComplete)
	assert.False(t, dhuhr.CanMarkQada)
	assert.False(t, dhuhr.Completed)
	assert.Equal(t, utc(12, 15), dhuhr.WindowStart)
	assert.Equal(t, utc(15, 45), dhuhr.WindowEnd)
}

func TestGetPrayerTimes_MissedDhuhrIsSweptAndQadaEligible(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()

	day, err := engine.GetPrayerTimes(context.Background(), 1, "2025-03-14", utc(16, 0))
	require.NoError(t, err)

	var dhuhr *PrayerView
	for i := range day.Prayers {
		if day.Prayers[i].Prayer.PrayerType == model.PrayerDhuhr {
			dhuhr = &day.Prayers[i]
		}
	}
	require.NotNil(t, dhuhr)

	assert.Equal(t, model.StatusMissed, dhuhr.Status)
	assert.True(t, dhuhr.CanComplete)
	assert.True(t, dhuhr.CanMarkQada)
	require.NotNil(t, dhuhr.Completion)
	assert.Equal(t, model.CompletionMissed, dhuhr.Completion.Status)
	assert.Nil(t, dhuhr.Completion.MarkedAt)

	// the sweep persisted the missed record
	swept, err := store.GetCompletionByPrayer(1, dhuhr.Prayer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionMissed, swept.Status)
}

func TestGetPrayerTimes_RejectsDateBeforeAccountCreation(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()

	_, err := engine.GetPrayerTimes(context.Background(), 1, "2025-01-05", utc(10, 0))
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Empty(t, store.prayers)
}

func TestGetPrayerTimes_InvalidDate(t *testing.T) {
	engine, _, _, _, _ := newTestEngine()

	_, err := engine.GetPrayerTimes(context.Background(), 1, "14-03-2025", utc(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetPrayerTimes_UnknownUser(t *testing.T) {
	engine, _, _, _, _ := newTestEngine()

	_, err := engine.GetPrayerTimes(context.Background(), 99, "2025-03-14", utc(10, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPrayerTimes_ProviderDownNoFallback(t *testing.T) {
	engine, store, _, provider, _ := newTestEngine()
	provider.err = errors.New("connection refused")

	_, err := engine.GetPrayerTimes(context.Background(), 1, "2025-03-14", utc(10, 0))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, store.prayers)
}

func TestGetPrayerTimes_ProviderDownUsesLatestDay(t *testing.T) {
	engine, _, _, provider, _ := newTestEngine()
	ctx := context.Background()

	// fetch an earlier day while the provider is healthy
	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-13", time.Date(2025, 3, 13, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	provider.err = errors.New("connection refused")

	day, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)
	assert.True(t, day.Degraded)
	assert.Len(t, day.Prayers, 5)
}

func ishaView(t *testing.T, day *DayTimes) *PrayerView {
	t.Helper()
	for i := range day.Prayers {
		if day.Prayers[i].Prayer.PrayerType == model.PrayerIsha {
			return &day.Prayers[i]
		}
	}
	t.Fatal("no isha in response")
	return nil
}

func TestGetPrayerTimes_IshaEndsAtNextDayFajrFromRows(t *testing.T) {
	engine, _, _, provider, _ := newTestEngine()
	ctx := context.Background()

	// the following day's rows exist first
	provider.timings.Fajr = "05:08"
	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-15", time.Date(2025, 3, 15, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	provider.timings.Fajr = "05:10"

	day, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)

	isha := ishaView(t, day)
	assert.Equal(t, time.Date(2025, 3, 15, 5, 8, 0, 0, time.UTC), isha.WindowEnd,
		"isha should end at the following day's fajr, not the duration fallback")
}

func TestGetPrayerTimes_IshaEndsAtNextDayFajrFromCachedPayload(t *testing.T) {
	engine, _, c, _, _ := newTestEngine()
	ctx := context.Background()

	// only the provider cache knows about the following day
	raw, err := json.Marshal(timings.Timings{Fajr: "05:08"})
	require.NoError(t, err)
	key := cache.ProviderKey(1, "2025-03-15", "2", cache.GeoHash(24.7136, 46.6753))
	c.Set(ctx, key, string(raw), cache.ProviderTTL)

	day, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)

	isha := ishaView(t, day)
	assert.Equal(t, time.Date(2025, 3, 15, 5, 8, 0, 0, time.UTC), isha.WindowEnd)
}

func TestGetPrayerTimes_IshaStillOngoingBeforeNextFajr(t *testing.T) {
	engine, _, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-15", time.Date(2025, 3, 15, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 04:30 next day is past isha+8h but before the next fajr at 05:10
	day, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", time.Date(2025, 3, 15, 4, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	isha := ishaView(t, day)
	assert.Equal(t, model.StatusOngoing, isha.Status)
	assert.False(t, isha.Completed, "isha must not be swept missed while still ongoing")
}

func TestGetPrayerTimes_IshaFallbackWithoutNextDayData(t *testing.T) {
	engine, _, _, _, _ := newTestEngine()

	day, err := engine.GetPrayerTimes(context.Background(), 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)

	isha := ishaView(t, day)
	assert.Equal(t, utc(19, 50).Add(8*time.Hour), isha.WindowEnd)
}

func prayerID(t *testing.T, store *fakeStore, pt model.PrayerType) int {
	t.Helper()
	for id, p := range store.prayers {
		if p.PrayerType == pt {
			return id
		}
	}
	t.Fatalf("no %s prayer seeded", pt)
	return 0
}

func TestCompletePrayer_OngoingRecordsJamaat(t *testing.T) {
	engine, store, _, _, notifier := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	completion, err := engine.CompletePrayer(ctx, 1, id, utc(12, 20), true, nil)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionJamaat, completion.Status)
	require.NotNil(t, completion.MarkedAt)
	assert.Equal(t, utc(12, 20), completion.MarkedAt.In(time.UTC))
	assert.Equal(t, []model.CompletionStatus{model.CompletionJamaat}, notifier.events)
}

func TestCompletePrayer_SecondCallAlreadyCompleted(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	_, err = engine.CompletePrayer(ctx, 1, id, utc(12, 20), true, nil)
	require.NoError(t, err)

	_, err = engine.CompletePrayer(ctx, 1, id, utc(12, 25), true, nil)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Len(t, store.completions, 1)
}

func TestCompletePrayer_TooEarly(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(8, 0))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	_, err = engine.CompletePrayer(ctx, 1, id, utc(8, 0), false, nil)
	assert.ErrorIs(t, err, ErrTooEarly)
}

func TestCompletePrayer_MissedHasNoMarkedAt(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	completion, err := engine.CompletePrayer(ctx, 1, id, utc(16, 0), false, nil)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionMissed, completion.Status)
	assert.Nil(t, completion.MarkedAt)
}

func TestCompletePrayer_InvalidatesAggregateCaches(t *testing.T) {
	engine, store, c, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	c.data["dashboard_stats:1"] = "{}"
	c.data["weekly_calendar:1:2025-03-10"] = "[]"

	_, err = engine.CompletePrayer(ctx, 1, id, utc(12, 20), false, nil)
	require.NoError(t, err)

	_, ok := c.data["dashboard_stats:1"]
	assert.False(t, ok)
	_, ok = c.data["weekly_calendar:1:2025-03-10"]
	assert.False(t, ok)
}

func TestCompletePrayer_WrongOwner(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	store.users[2] = &model.User{ID: 2, Email: "other@example.com", Timezone: "UTC", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	_, err = engine.CompletePrayer(ctx, 2, id, utc(12, 20), false, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkQada_ConvertsMissedRecord(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	// the sweep at 16:00 records the miss
	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(16, 0))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	completion, err := engine.MarkQada(ctx, 1, id, utc(20, 0))
	require.NoError(t, err)
	assert.Equal(t, model.CompletionQada, completion.Status)
	require.NotNil(t, completion.MarkedAt)

	stored, err := store.GetCompletionByPrayer(1, id)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionQada, stored.Status)
}

func TestMarkQada_NoRecordButWindowElapsed(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	// fetch early so the sweep records nothing
	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	completion, err := engine.MarkQada(ctx, 1, id, utc(20, 0))
	require.NoError(t, err)
	assert.Equal(t, model.CompletionQada, completion.Status)
}

func TestMarkQada_RejectsOngoingPrayer(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	_, err = engine.MarkQada(ctx, 1, id, utc(12, 20))
	assert.ErrorIs(t, err, ErrNotEligibleForQada)
}

func TestMarkQada_RejectsPerformedPrayer(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)

	_, err = engine.CompletePrayer(ctx, 1, id, utc(12, 20), true, nil)
	require.NoError(t, err)

	_, err = engine.MarkQada(ctx, 1, id, utc(20, 0))
	assert.ErrorIs(t, err, ErrNotEligibleForQada)
}

func TestMarkQada_BeforeAccountCreation(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	// a prayer row predating the account should never be qada-eligible
	store.prayers[500] = model.Prayer{
		ID:         500,
		UserID:     1,
		PrayerType: model.PrayerDhuhr,
		PrayerDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		PrayerTime: "12:15",
		Timezone:   "UTC",
	}

	_, err := engine.MarkQada(ctx, 1, 500, utc(20, 0))
	assert.ErrorIs(t, err, ErrBeforeAccountCreation)
}

func TestSweepMissedToday(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(6, 0))
	require.NoError(t, err)
	require.Empty(t, store.completions)

	// Fajr, Dhuhr and Asr windows have elapsed by 18:30
	swept, err := engine.SweepMissedToday(ctx, 1, utc(18, 30))
	require.NoError(t, err)
	assert.Equal(t, 3, swept)

	// a second sweep finds nothing new
	swept, err = engine.SweepMissedToday(ctx, 1, utc(18, 30))
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestGetDashboardStats_CachesResult(t *testing.T) {
	engine, store, c, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)
	_, err = engine.CompletePrayer(ctx, 1, id, utc(12, 20), true, nil)
	require.NoError(t, err)

	stats, err := engine.GetDashboardStats(ctx, 1, utc(13, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Jamaat)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 100.0, stats.CompletionRate)

	_, ok := c.data["dashboard_stats:1"]
	assert.True(t, ok)
}

func TestGetWeeklyCalendar(t *testing.T) {
	engine, store, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.GetPrayerTimes(ctx, 1, "2025-03-14", utc(12, 20))
	require.NoError(t, err)
	id := prayerID(t, store, model.PrayerDhuhr)
	_, err = engine.CompletePrayer(ctx, 1, id, utc(12, 20), true, nil)
	require.NoError(t, err)

	days, err := engine.GetWeeklyCalendar(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, "2025-03-10", days[0].Date)
	assert.Equal(t, 1, days[4].Completed) // 2025-03-14
}
