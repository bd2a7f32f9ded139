package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GoalHistoryEntry is one goal in a client's append-only goal log. The entry
// with a NULL EndedAt is the current goal.
type GoalHistoryEntry struct {
	ID        int64
	ClientID  int64
	Goal      string
	StartedAt time.Time
	EndedAt   sql.NullTime
}

// Current reports whether the entry is still open.
func (g *GoalHistoryEntry) Current() bool { return !g.EndedAt.Valid }

// SetClientGoal closes the client's open goal entry, opens a new one and
// updates the denormalized clients.current_goal, all in one transaction.
func SetClientGoal(ctx context.Context, db *sql.DB, clientID int64, goal string) (*GoalHistoryEntry, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("models: begin set goal for client %d: %w", clientID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE clients SET current_goal = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, goal, clientID)
	if err != nil {
		return nil, fmt.Errorf("models: update goal for client %d: %w", clientID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE goal_history SET ended_at = CURRENT_TIMESTAMP WHERE client_id = ? AND ended_at IS NULL`, clientID,
	); err != nil {
		return nil, fmt.Errorf("models: close goal for client %d: %w", clientID, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO goal_history (client_id, goal) VALUES (?, ?) RETURNING id`, clientID, goal,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("models: open goal for client %d: %w", clientID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("models: commit goal for client %d: %w", clientID, err)
	}
	return getGoalHistoryEntry(ctx, db, id)
}

const goalColumns = `id, client_id, goal, started_at, ended_at`

func scanGoal(row interface{ Scan(...any) error }) (*GoalHistoryEntry, error) {
	g := &GoalHistoryEntry{}
	err := row.Scan(&g.ID, &g.ClientID, &g.Goal, &g.StartedAt, &g.EndedAt)
	return g, err
}

func getGoalHistoryEntry(ctx context.Context, db DBTX, id int64) (*GoalHistoryEntry, error) {
	g, err := scanGoal(db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goal_history WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get goal history %d: %w", id, err)
	}
	return g, nil
}

// CurrentGoal returns the client's most recent open goal entry, or
// ErrNotFound when none is open.
func CurrentGoal(ctx context.Context, db DBTX, clientID int64) (*GoalHistoryEntry, error) {
	g, err := scanGoal(db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goal_history
		 WHERE client_id = ? AND ended_at IS NULL
		 ORDER BY started_at DESC, id DESC LIMIT 1`, clientID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: current goal for client %d: %w", clientID, err)
	}
	return g, nil
}

// ListGoalHistory returns the client's goal log, newest first.
func ListGoalHistory(ctx context.Context, db DBTX, clientID int64) ([]*GoalHistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goal_history WHERE client_id = ?
		 ORDER BY started_at DESC, id DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("models: list goal history for client %d: %w", clientID, err)
	}
	defer rows.Close()

	var entries []*GoalHistoryEntry
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("models: scan goal history: %w", err)
		}
		entries = append(entries, g)
	}
	return entries, rows.Err()
}
