package database

import (
	"testing"
)

func TestRunMigrations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	// Running twice is a no-op.
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	v, err := Version(db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v < 1 {
		t.Errorf("version = %d, want >= 1", v)
	}

	for _, table := range []string{"users", "clients", "goal_history", "exercises", "gyms",
		"training_sessions", "session_exercises", "ai_conversations", "ai_messages",
		"ai_generated_plans", "coach_ai_settings", "sessions"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
