package models

import (
	"context"
	"database/sql"
	"testing"

	"github.com/carpenike/helix/internal/database"
)

// testDB creates a fresh in-memory SQLite database with migrations applied.
func testDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// seedCoach creates a coach account for tests that need an owner.
func seedCoach(t testing.TB, db *sql.DB, username string) *User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, username, "password123", "")
	if err != nil {
		t.Fatalf("create coach %q: %v", username, err)
	}
	return u
}

// seedClient creates a client owned by the given coach.
func seedClient(t testing.TB, db *sql.DB, coachID int64, first, last string) *Client {
	t.Helper()
	c, err := CreateClient(context.Background(), db, ClientParams{
		UserID:    coachID,
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		t.Fatalf("create client %s %s: %v", first, last, err)
	}
	return c
}
