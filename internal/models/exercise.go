package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateExerciseName is returned when an exercise name is already taken
// in the same catalog scope.
var ErrDuplicateExerciseName = errors.New("duplicate exercise name")

// Exercise is a catalog entry. UserID is NULL for the shared global catalog.
type Exercise struct {
	ID          int64
	UserID      sql.NullInt64
	Name        string
	Description sql.NullString
	CreatedAt   time.Time
}

// Global reports whether the exercise belongs to the shared catalog.
func (e *Exercise) Global() bool { return !e.UserID.Valid }

// CreateExercise inserts a catalog entry. A nil userID creates a global
// exercise. Names are unique per owner, case-insensitively; casing is stored
// as given.
func CreateExercise(ctx context.Context, db DBTX, userID *int64, name, description string) (*Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("models: create exercise: name is required")
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO exercises (user_id, name, description) VALUES (?, ?, ?) RETURNING id`,
		nullInt64(userID), name, nullString(description),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateExerciseName
		}
		return nil, fmt.Errorf("models: create exercise %q: %w", name, err)
	}
	return GetExerciseByID(ctx, db, id)
}

const exerciseColumns = `id, user_id, name, description, created_at`

func scanExercise(row interface{ Scan(...any) error }) (*Exercise, error) {
	e := &Exercise{}
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Description, &e.CreatedAt)
	return e, err
}

// GetExerciseByID retrieves an exercise by primary key.
func GetExerciseByID(ctx context.Context, db DBTX, id int64) (*Exercise, error) {
	e, err := scanExercise(db.QueryRowContext(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get exercise %d: %w", id, err)
	}
	return e, nil
}

// ListExercises returns the catalog visible to a coach: their own exercises
// plus the global ones, ordered by name.
func ListExercises(ctx context.Context, db DBTX, userID int64) ([]*Exercise, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises
		 WHERE user_id = ? OR user_id IS NULL
		 ORDER BY name COLLATE NOCASE, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("models: list exercises for user %d: %w", userID, err)
	}
	defer rows.Close()

	var exercises []*Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("models: scan exercise: %w", err)
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

// CountExercises returns the number of catalog rows visible to a coach.
func CountExercises(ctx context.Context, db DBTX, userID int64) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exercises WHERE user_id = ? OR user_id IS NULL`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("models: count exercises for user %d: %w", userID, err)
	}
	return n, nil
}
