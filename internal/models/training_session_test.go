package models

import (
	"context"
	"testing"
)

func TestCreateSession(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	coach := seedCoach(t, db, "coach")
	c := seedClient(t, db, coach.ID, "Anna", "Bianchi")
	gym, err := CreateGym(ctx, db, coach.ID, "FitLab", "Via Roma 1", "sala pesi")
	if err != nil {
		t.Fatalf("create gym: %v", err)
	}

	s, err := CreateSession(ctx, db, SessionParams{ClientID: c.ID, GymID: &gym.ID, SessionDate: "2025-03-10", Notes: "leg day"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if s.Status != SessionPlanned {
		t.Errorf("status = %q, want planned", s.Status)
	}
	if s.SessionDate != "2025-03-10" {
		t.Errorf("date = %q", s.SessionDate)
	}
	if s.GymName.String != "FitLab" || s.GymAddress.String != "Via Roma 1" {
		t.Errorf("gym join = %v / %v", s.GymName, s.GymAddress)
	}

	t.Run("invalid status", func(t *testing.T) {
		_, err := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: "2025-03-10", Status: "cancelled"})
		if err == nil {
			t.Error("expected error for invalid status")
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: "tomorrow"})
		if err == nil {
			t.Error("expected error for invalid date")
		}
	})
}

func TestListRecentCompletedSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	coach := seedCoach(t, db, "coach")
	c := seedClient(t, db, coach.ID, "Anna", "Bianchi")

	dates := []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-22", "2025-01-29", "2025-02-05", "2025-02-12"}
	for _, d := range dates {
		if _, err := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: d, Status: SessionCompleted}); err != nil {
			t.Fatalf("create session %s: %v", d, err)
		}
	}
	if _, err := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: "2025-03-01"}); err != nil {
		t.Fatalf("create planned session: %v", err)
	}

	recent, err := ListRecentCompletedSessions(ctx, db, c.ID, 5)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("got %d sessions, want 5", len(recent))
	}
	if recent[0].SessionDate != "2025-02-12" || recent[4].SessionDate != "2025-01-15" {
		t.Errorf("range = %s .. %s", recent[0].SessionDate, recent[4].SessionDate)
	}

	all, err := ListSessions(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 8 || all[0].Status != SessionPlanned {
		t.Errorf("list sessions = %d, first status %q", len(all), all[0].Status)
	}
}

func TestAddSessionExercises(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	coach := seedCoach(t, db, "coach")
	c := seedClient(t, db, coach.ID, "Anna", "Bianchi")
	squat, _ := CreateExercise(ctx, db, &coach.ID, "Squat", "")
	row, _ := CreateExercise(ctx, db, nil, "Row", "")

	s, err := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: "2025-03-10"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	sets, reps, weight := int64(3), int64(10), 60.5
	err = AddSessionExercises(ctx, db, s.ID, []SessionExerciseParams{
		{ExerciseID: row.ID, OrderIndex: 1, Notes: "slow"},
		{ExerciseID: squat.ID, OrderIndex: 0, Sets: &sets, Reps: &reps, WeightKg: &weight},
	})
	if err != nil {
		t.Fatalf("add exercises: %v", err)
	}

	items, err := ListSessionExercises(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("list session exercises: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ExerciseName != "Squat" || items[0].OrderIndex != 0 {
		t.Errorf("first = %+v", items[0])
	}
	if items[0].WeightKg.Float64 != 60.5 || items[0].Sets.Int64 != 3 {
		t.Errorf("params = %v %v", items[0].WeightKg, items[0].Sets)
	}
	if items[1].Notes.String != "slow" || items[1].Sets.Valid {
		t.Errorf("second = %+v", items[1])
	}

	if err := MarkSessionExercise(ctx, db, items[1].ID, false, true); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := CompleteSession(ctx, db, s.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := GetSessionByID(ctx, db, s.ID)
	if got.Status != SessionCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestAddSessionExercises_AllOrNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	coach := seedCoach(t, db, "coach")
	c := seedClient(t, db, coach.ID, "Anna", "Bianchi")
	squat, _ := CreateExercise(ctx, db, &coach.ID, "Squat", "")
	s, _ := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: "2025-03-10"})

	err := AddSessionExercises(ctx, db, s.ID, []SessionExerciseParams{
		{ExerciseID: squat.ID, OrderIndex: 0},
		{ExerciseID: 9999, OrderIndex: 1},
	})
	if err == nil {
		t.Fatal("expected foreign key error")
	}

	items, _ := ListSessionExercises(ctx, db, s.ID)
	if len(items) != 0 {
		t.Errorf("got %d rows after failed batch, want 0", len(items))
	}
}
