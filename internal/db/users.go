package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/model"
)

// inserts new user into table, returns new user ID.
func (s *pgStore) CreateUser(email, hashedPassword string, name *string, timezone string) (int, error) {
	query := `
	INSERT INTO users (email, hashed_password, name, timezone, created_at, updated_at)
	VALUES ($1, $2, $3, $4, now(), now())
	RETURNING id;
	`
	var newID int
	err := s.db.QueryRow(query, email, hashedPassword, name, timezone).Scan(&newID)
	if err != nil {
		log.Error().Msg("failed to create user")
		return 0, err
	}
	return newID, nil
}

// fetches user by email. returns nil, sql.ErrNoRows if not found.
func (s *pgStore) GetUserByEmail(email string) (*model.User, error) {
	var u model.User
	query := `
	SELECT id, email, hashed_password, name, location_lat, location_lng,
	       timezone, fiqh_method, created_at, updated_at
	FROM users
	WHERE email = $1;
	`
	err := s.db.Get(&u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Msg("failed to get user by email")
		return nil, err
	}
	return &u, nil
}

// fetches a user by ID. Returns nil, sql.ErrNoRows if not found.
func (s *pgStore) GetUserByID(id int) (*model.User, error) {
	var u model.User
	query := `
	SELECT id, email, hashed_password, name, location_lat, location_lng,
	       timezone, fiqh_method, created_at, updated_at
	FROM users
	WHERE id = $1;
	`
	err := s.db.Get(&u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Msg("failed to get user by id")
		return nil, err
	}
	return &u, nil
}

// updates a user's profile fields and bumps updated_at.
// returns an error if no rows were affected (e.g. user ID doesn’t exist).
func (s *pgStore) UpdateUserProfile(id int, name *string, timezone string, fiqhMethod int, lat, lng *float64) error {
	query := `
	UPDATE users
	SET name = $2,
	timezone = $3,
	fiqh_method = $4,
	location_lat = $5,
	location_lng = $6,
	updated_at = now()
	WHERE id = $1;
	`
	res, err := s.db.Exec(query, id, name, timezone, fiqhMethod, lat, lng)
	if err != nil {
		log.Error().Msg("failed to update user profile - exec")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		log.Error().Msg("failed to update user profile - rows affected")
		return err
	}
	if rows == 0 {
		log.Error().Msg("failed to update user profile - no such user")
		return errors.New("no such user")
	}
	return nil
}
