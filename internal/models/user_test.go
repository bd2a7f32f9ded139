package models

import (
	"context"
	"errors"
	"testing"
)

func TestCreateUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	t.Run("basic create", func(t *testing.T) {
		u, err := CreateUser(ctx, db, "coach", "password123", "coach@test.com")
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if u.Username != "coach" {
			t.Errorf("username = %q, want coach", u.Username)
		}
		if !u.Email.Valid || u.Email.String != "coach@test.com" {
			t.Errorf("email = %v, want coach@test.com", u.Email)
		}
		if u.PasswordHash == "password123" {
			t.Error("password stored in plaintext")
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := CreateUser(ctx, db, "coach", "other", "")
		if !errors.Is(err, ErrDuplicateUsername) {
			t.Errorf("err = %v, want ErrDuplicateUsername", err)
		}
	})

	t.Run("case insensitive duplicate", func(t *testing.T) {
		_, err := CreateUser(ctx, db, "COACH", "other", "")
		if !errors.Is(err, ErrDuplicateUsername) {
			t.Errorf("err = %v, want ErrDuplicateUsername", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "testuser", "correct-password", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		u, err := Authenticate(ctx, db, "testuser", "correct-password")
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if u.Username != "testuser" {
			t.Errorf("username = %q, want testuser", u.Username)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := Authenticate(ctx, db, "testuser", "wrong-password")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		_, err := Authenticate(ctx, db, "nobody", "anything")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestCountUsers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	count, err := CountUsers(ctx, db)
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	seedCoach(t, db, "a")
	seedCoach(t, db, "b")

	count, err = CountUsers(ctx, db)
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
