package db

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noorhub/salahtrack/internal/model"
)

// integration tests; they run only when TEST_DATABASE_URL points at a
// disposable database.

func TestMain(m *testing.M) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping db integration tests")
		os.Exit(0)
	}
	if err := InitTestDB("../../migrations"); err != nil {
		fmt.Println("failed to init test db:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func testUser(t *testing.T) int {
	t.Helper()
	email := fmt.Sprintf("user-%d@example.com", time.Now().UnixNano())
	id, err := TestStore.CreateUser(email, "hashed-password", nil, "UTC")
	require.NoError(t, err)
	return id
}

func testPrayer(t *testing.T, userID int, pt model.PrayerType, date time.Time) model.Prayer {
	t.Helper()
	lat, lng := 24.7136, 46.6753
	created, err := TestStore.CreatePrayers([]model.Prayer{{
		UserID:      userID,
		PrayerType:  pt,
		PrayerDate:  date,
		PrayerTime:  "12:15",
		LocationLat: &lat,
		LocationLng: &lng,
		Timezone:    "UTC",
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

func TestUserRoundTrip(t *testing.T) {
	id := testUser(t)

	user, err := TestStore.GetUserByID(id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "UTC", user.Timezone)
	assert.Nil(t, user.LocationLat)

	byEmail, err := TestStore.GetUserByEmail(user.Email)
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
}

func TestUpdateUserProfile(t *testing.T) {
	id := testUser(t)

	name := "Test User"
	lat, lng := 51.5074, -0.1278
	err := TestStore.UpdateUserProfile(id, &name, "Europe/London", 3, &lat, &lng)
	require.NoError(t, err)

	user, err := TestStore.GetUserByID(id)
	require.NoError(t, err)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Test User", *user.Name)
	assert.Equal(t, "Europe/London", user.Timezone)
	assert.Equal(t, 3, user.FiqhMethod)
	require.NotNil(t, user.LocationLat)
	assert.InDelta(t, 51.5074, *user.LocationLat, 1e-6)
}

func TestPrayersForDate(t *testing.T) {
	userID := testUser(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	p := testPrayer(t, userID, model.PrayerDhuhr, date)

	rows, err := TestStore.GetPrayersForDate(userID, date)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, p.ID, rows[0].ID)
	assert.Equal(t, "12:15", rows[0].PrayerTime)

	latest, err := TestStore.LatestPrayerDate(userID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", latest.Format("2006-01-02"))
}

func TestCreateCompletionIsAtomic(t *testing.T) {
	userID := testUser(t)
	p := testPrayer(t, userID, model.PrayerDhuhr, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))

	now := time.Now().UTC().Truncate(time.Second)
	created, err := TestStore.CreateCompletion(&model.PrayerCompletion{
		UserID:   userID,
		PrayerID: p.ID,
		Status:   model.CompletionJamaat,
		MarkedAt: &now,
	})
	require.NoError(t, err)
	assert.True(t, created)

	// the unique index makes the second insert a no-op
	created, err = TestStore.CreateCompletion(&model.PrayerCompletion{
		UserID:   userID,
		PrayerID: p.ID,
		Status:   model.CompletionWithoutJamaat,
	})
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := TestStore.GetCompletionByPrayer(userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionJamaat, stored.Status)
}

func TestConvertMissedToQada(t *testing.T) {
	userID := testUser(t)
	p := testPrayer(t, userID, model.PrayerFajr, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))

	_, err := TestStore.CreateCompletion(&model.PrayerCompletion{
		UserID:   userID,
		PrayerID: p.ID,
		Status:   model.CompletionMissed,
	})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	converted, err := TestStore.ConvertMissedToQada(userID, p.ID, now)
	require.NoError(t, err)
	assert.True(t, converted)

	stored, err := TestStore.GetCompletionByPrayer(userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionQada, stored.Status)
	require.NotNil(t, stored.MarkedAt)

	// the guard rejects a second conversion
	converted, err = TestStore.ConvertMissedToQada(userID, p.ID, now)
	require.NoError(t, err)
	assert.False(t, converted)
}

func TestConvertMissedToQadaRejectsPerformed(t *testing.T) {
	userID := testUser(t)
	p := testPrayer(t, userID, model.PrayerAsr, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))

	now := time.Now().UTC()
	_, err := TestStore.CreateCompletion(&model.PrayerCompletion{
		UserID:   userID,
		PrayerID: p.ID,
		Status:   model.CompletionJamaat,
		MarkedAt: &now,
	})
	require.NoError(t, err)

	converted, err := TestStore.ConvertMissedToQada(userID, p.ID, now)
	require.NoError(t, err)
	assert.False(t, converted)
}

func TestGetCompletionByPrayerNoRows(t *testing.T) {
	userID := testUser(t)

	_, err := TestStore.GetCompletionByPrayer(userID, 999999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCountCompletionsByStatus(t *testing.T) {
	userID := testUser(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	p1 := testPrayer(t, userID, model.PrayerDhuhr, date)
	p2 := testPrayer(t, userID, model.PrayerAsr, date)

	now := time.Now().UTC()
	_, err := TestStore.CreateCompletion(&model.PrayerCompletion{UserID: userID, PrayerID: p1.ID, Status: model.CompletionJamaat, MarkedAt: &now})
	require.NoError(t, err)
	_, err = TestStore.CreateCompletion(&model.PrayerCompletion{UserID: userID, PrayerID: p2.ID, Status: model.CompletionMissed})
	require.NoError(t, err)

	counts, err := TestStore.CountCompletionsByStatus(userID, date.AddDate(0, 0, -1), date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.CompletionJamaat])
	assert.Equal(t, 1, counts[model.CompletionMissed])

	perDay, err := TestStore.CompletionsPerDay(userID, date.AddDate(0, 0, -1), date.AddDate(0, 0, 1))
	require.NoError(t, err)
	// the missed row does not count as performed
	assert.Equal(t, 1, perDay["2025-03-14"])
}
