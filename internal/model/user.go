package model

import "time"

type User struct {
	ID             int       `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	Name           *string   `db:"name"`
	LocationLat    *float64  `db:"location_lat"`
	LocationLng    *float64  `db:"location_lng"`
	Timezone       string    `db:"timezone"`
	FiqhMethod     int       `db:"fiqh_method"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Location returns the user's coordinates, or ok=false if they never set one.
func (u *User) Location() (lat, lng float64, ok bool) {
	if u.LocationLat == nil || u.LocationLng == nil {
		return 0, 0, false
	}
	return *u.LocationLat, *u.LocationLng, true
}
