// exposes a Store interface that is passed to the engine and API layers
package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noorhub/salahtrack/internal/model"
)

type Store interface {
	// user functions
	CreateUser(email, hashedPassword string, name *string, timezone string) (int, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id int) (*model.User, error)
	UpdateUserProfile(id int, name *string, timezone string, fiqhMethod int, lat, lng *float64) error

	// prayer functions
	GetPrayerByID(id int) (*model.Prayer, error)
	GetPrayersForDate(userID int, date time.Time) ([]model.Prayer, error)
	CreatePrayers(prayers []model.Prayer) ([]model.Prayer, error)
	LatestPrayerDate(userID int) (time.Time, error)

	// completion functions
	GetCompletionByPrayer(userID, prayerID int) (*model.PrayerCompletion, error)
	GetCompletionsForPrayers(userID int, prayerIDs []int) (map[int]model.PrayerCompletion, error)
	CreateCompletion(c *model.PrayerCompletion) (bool, error)
	ConvertMissedToQada(userID, prayerID int, markedAt time.Time) (bool, error)
	CountCompletionsByStatus(userID int, from, to time.Time) (map[model.CompletionStatus]int, error)
	CompletionsPerDay(userID int, from, to time.Time) (map[string]int, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
// required so linter doesn't complain
var _ Store = (*pgStore)(nil)

func NewStore(database *sqlx.DB) Store {
	return &pgStore{db: database}
}
