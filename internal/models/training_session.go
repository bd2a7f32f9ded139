package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session statuses.
const (
	SessionPlanned   = "planned"
	SessionCompleted = "completed"
)

// TrainingSession is a scheduled or completed training event for one client.
type TrainingSession struct {
	ID          int64
	ClientID    int64
	GymID       sql.NullInt64
	SessionDate string // DATE as string (YYYY-MM-DD)
	Status      string
	Notes       sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Joined fields populated by read queries.
	GymName        sql.NullString
	GymAddress     sql.NullString
	GymDescription sql.NullString
}

// SessionParams holds the fields accepted when creating a session.
type SessionParams struct {
	ClientID    int64
	GymID       *int64
	SessionDate string
	Status      string
	Notes       string
}

// CreateSession inserts a training session. Status defaults to planned.
func CreateSession(ctx context.Context, db DBTX, p SessionParams) (*TrainingSession, error) {
	status := p.Status
	if status == "" {
		status = SessionPlanned
	}
	if status != SessionPlanned && status != SessionCompleted {
		return nil, fmt.Errorf("models: create session: invalid status %q", p.Status)
	}
	date := normalizeDate(p.SessionDate)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("models: create session: invalid date %q", p.SessionDate)
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO training_sessions (client_id, gym_id, session_date, status, notes)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		p.ClientID, nullInt64(p.GymID), date, status, nullString(p.Notes),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("models: create session for client %d: %w", p.ClientID, err)
	}
	return GetSessionByID(ctx, db, id)
}

const sessionSelect = `SELECT s.id, s.client_id, s.gym_id, s.session_date, s.status, s.notes,
	s.created_at, s.updated_at, g.name, g.address, g.description
	FROM training_sessions s
	LEFT JOIN gyms g ON g.id = s.gym_id`

func scanSession(row interface{ Scan(...any) error }) (*TrainingSession, error) {
	s := &TrainingSession{}
	err := row.Scan(&s.ID, &s.ClientID, &s.GymID, &s.SessionDate, &s.Status, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt, &s.GymName, &s.GymAddress, &s.GymDescription)
	if err != nil {
		return nil, err
	}
	s.SessionDate = normalizeDate(s.SessionDate)
	return s, nil
}

// GetSessionByID retrieves a session with its gym details.
func GetSessionByID(ctx context.Context, db DBTX, id int64) (*TrainingSession, error) {
	s, err := scanSession(db.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get session %d: %w", id, err)
	}
	return s, nil
}

// ListSessions returns all of a client's sessions, most recent first.
func ListSessions(ctx context.Context, db DBTX, clientID int64) ([]*TrainingSession, error) {
	return querySessions(ctx, db,
		sessionSelect+` WHERE s.client_id = ? ORDER BY s.session_date DESC, s.id DESC`, clientID)
}

// ListRecentCompletedSessions returns up to limit completed sessions for the
// client, most recently dated first.
func ListRecentCompletedSessions(ctx context.Context, db DBTX, clientID int64, limit int) ([]*TrainingSession, error) {
	return querySessions(ctx, db,
		sessionSelect+` WHERE s.client_id = ? AND s.status = 'completed'
		 ORDER BY s.session_date DESC, s.id DESC LIMIT ?`, clientID, limit)
}

func querySessions(ctx context.Context, db DBTX, query string, args ...any) ([]*TrainingSession, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("models: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*TrainingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("models: scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CompleteSession marks a session completed.
func CompleteSession(ctx context.Context, db DBTX, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE training_sessions SET status = 'completed', updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("models: complete session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
