package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SessionExercise links a training session to a catalog exercise with the
// prescribed parameters.
type SessionExercise struct {
	ID              int64
	SessionID       int64
	ExerciseID      int64
	OrderIndex      int
	Sets            sql.NullInt64
	Reps            sql.NullInt64
	WeightKg        sql.NullFloat64
	DurationSeconds sql.NullInt64
	Notes           sql.NullString
	Completed       bool
	Skipped         bool

	// Joined from exercises.
	ExerciseName string
}

// SessionExerciseParams describes one row for AddSessionExercises.
type SessionExerciseParams struct {
	ExerciseID      int64
	OrderIndex      int
	Sets            *int64
	Reps            *int64
	WeightKg        *float64
	DurationSeconds *int64
	Notes           string
}

// AddSessionExercises inserts all rows for a session in a single statement.
// Either every row is written or none is.
func AddSessionExercises(ctx context.Context, db DBTX, sessionID int64, items []SessionExerciseParams) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO session_exercises
		(session_id, exercise_id, order_index, sets, reps, weight_kg, duration_seconds, notes) VALUES `)
	args := make([]any, 0, len(items)*8)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, sessionID, it.ExerciseID, it.OrderIndex,
			nullInt64(it.Sets), nullInt64(it.Reps), nullFloat64(it.WeightKg),
			nullInt64(it.DurationSeconds), nullString(it.Notes))
	}

	if _, err := db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("models: add %d exercises to session %d: %w", len(items), sessionID, err)
	}
	return nil
}

// ListSessionExercises returns a session's exercises in order.
func ListSessionExercises(ctx context.Context, db DBTX, sessionID int64) ([]*SessionExercise, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT se.id, se.session_id, se.exercise_id, se.order_index, se.sets, se.reps,
		        se.weight_kg, se.duration_seconds, se.notes, se.completed, se.skipped, e.name
		 FROM session_exercises se
		 JOIN exercises e ON e.id = se.exercise_id
		 WHERE se.session_id = ?
		 ORDER BY se.order_index, se.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("models: list exercises for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var items []*SessionExercise
	for rows.Next() {
		se := &SessionExercise{}
		if err := rows.Scan(&se.ID, &se.SessionID, &se.ExerciseID, &se.OrderIndex, &se.Sets, &se.Reps,
			&se.WeightKg, &se.DurationSeconds, &se.Notes, &se.Completed, &se.Skipped, &se.ExerciseName); err != nil {
			return nil, fmt.Errorf("models: scan session exercise: %w", err)
		}
		items = append(items, se)
	}
	return items, rows.Err()
}

// MarkSessionExercise records completion or skip state for one row.
func MarkSessionExercise(ctx context.Context, db DBTX, id int64, completed, skipped bool) error {
	res, err := db.ExecContext(ctx,
		`UPDATE session_exercises SET completed = ?, skipped = ? WHERE id = ?`, completed, skipped, id)
	if err != nil {
		return fmt.Errorf("models: mark session exercise %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
