package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Gym is a training venue owned by a coach.
type Gym struct {
	ID          int64
	UserID      int64
	Name        string
	Address     sql.NullString
	Description sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateGym inserts a gym for the coach.
func CreateGym(ctx context.Context, db DBTX, userID int64, name, address, description string) (*Gym, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("models: create gym: name is required")
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO gyms (user_id, name, address, description) VALUES (?, ?, ?, ?) RETURNING id`,
		userID, name, nullString(address), nullString(description),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("models: create gym %q: %w", name, err)
	}
	return GetGymByID(ctx, db, id)
}

const gymColumns = `id, user_id, name, address, description, created_at, updated_at`

func scanGym(row interface{ Scan(...any) error }) (*Gym, error) {
	g := &Gym{}
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Address, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// GetGymByID retrieves a gym by primary key.
func GetGymByID(ctx context.Context, db DBTX, id int64) (*Gym, error) {
	g, err := scanGym(db.QueryRowContext(ctx, `SELECT `+gymColumns+` FROM gyms WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get gym %d: %w", id, err)
	}
	return g, nil
}

// ListGyms returns a coach's gyms ordered by name.
func ListGyms(ctx context.Context, db DBTX, userID int64) ([]*Gym, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+gymColumns+` FROM gyms WHERE user_id = ? ORDER BY name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("models: list gyms for user %d: %w", userID, err)
	}
	defer rows.Close()

	var gyms []*Gym
	for rows.Next() {
		g, err := scanGym(rows)
		if err != nil {
			return nil, fmt.Errorf("models: scan gym: %w", err)
		}
		gyms = append(gyms, g)
	}
	return gyms, rows.Err()
}
