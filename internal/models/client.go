package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Client is a person coached by a User.
type Client struct {
	ID            int64
	UserID        int64
	FirstName     string
	LastName      string
	BirthDate     sql.NullString // DATE as string (YYYY-MM-DD)
	AgeYears      sql.NullInt64
	Gender        sql.NullString // "male" or "female"
	CurrentGoal   sql.NullString
	PhysicalNotes sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns "First Last".
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// BirthTime parses BirthDate. ok is false when no birth date is stored.
func (c *Client) BirthTime() (t time.Time, ok bool) {
	if !c.BirthDate.Valid || c.BirthDate.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", normalizeDate(c.BirthDate.String))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayAge returns the client's age on now, correcting for whether the
// birthday has occurred yet this year. A stored age is used when there is no
// birth date.
func (c *Client) DisplayAge(now time.Time) (int, bool) {
	birth, ok := c.BirthTime()
	if !ok {
		if c.AgeYears.Valid {
			return int(c.AgeYears.Int64), true
		}
		return 0, false
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age, true
}

// ClientParams holds the fields accepted when creating a client.
type ClientParams struct {
	UserID        int64
	FirstName     string
	LastName      string
	BirthDate     string
	AgeYears      *int64
	Gender        string
	PhysicalNotes string
	Goal          string
}

// CreateClient inserts a client. A non-empty Goal opens the client's goal
// history.
func CreateClient(ctx context.Context, db DBTX, p ClientParams) (*Client, error) {
	var birth sql.NullString
	if p.BirthDate != "" {
		d := normalizeDate(p.BirthDate)
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("models: create client: invalid birth date %q", p.BirthDate)
		}
		birth = sql.NullString{String: d, Valid: true}
	}
	if p.Gender != "" && p.Gender != "male" && p.Gender != "female" {
		return nil, fmt.Errorf("models: create client: invalid gender %q", p.Gender)
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO clients (user_id, first_name, last_name, birth_date, age_years, gender, current_goal, physical_notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		p.UserID, p.FirstName, p.LastName, birth, nullInt64(p.AgeYears),
		nullString(p.Gender), nullString(p.Goal), nullString(p.PhysicalNotes),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("models: create client %q: %w", p.FirstName+" "+p.LastName, err)
	}

	if p.Goal != "" {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO goal_history (client_id, goal) VALUES (?, ?)`, id, p.Goal,
		); err != nil {
			return nil, fmt.Errorf("models: open goal history for client %d: %w", id, err)
		}
	}

	return GetClientByID(ctx, db, id)
}

const clientColumns = `id, user_id, first_name, last_name, birth_date, age_years, gender,
	current_goal, physical_notes, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (*Client, error) {
	c := &Client{}
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.BirthDate, &c.AgeYears,
		&c.Gender, &c.CurrentGoal, &c.PhysicalNotes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.BirthDate.Valid {
		c.BirthDate.String = normalizeDate(c.BirthDate.String)
	}
	return c, nil
}

// GetClientByID retrieves a client by primary key.
func GetClientByID(ctx context.Context, db DBTX, id int64) (*Client, error) {
	c, err := scanClient(db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get client %d: %w", id, err)
	}
	return c, nil
}

// GetCoachClient retrieves a client only if it belongs to the given coach.
func GetCoachClient(ctx context.Context, db DBTX, userID, id int64) (*Client, error) {
	c, err := GetClientByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListClients returns a coach's clients ordered by name.
func ListClients(ctx context.Context, db DBTX, userID int64) ([]*Client, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = ?
		 ORDER BY last_name COLLATE NOCASE, first_name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("models: list clients for user %d: %w", userID, err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("models: scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdatePhysicalNotes replaces the client's anamnesis notes.
func UpdatePhysicalNotes(ctx context.Context, db DBTX, id int64, notes string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE clients SET physical_notes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nullString(notes), id)
	if err != nil {
		return fmt.Errorf("models: update notes for client %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
