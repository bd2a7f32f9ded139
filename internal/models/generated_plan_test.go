package models

import (
	"context"
	"errors"
	"testing"
)

func TestGeneratedPlanLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	coach := seedCoach(t, db, "coach")
	c := seedClient(t, db, coach.ID, "Anna", "Bianchi")
	conv, _ := CreateConversation(ctx, db, coach.ID, c.ID)

	if _, err := LatestUnacceptedPlan(ctx, db, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := CreateGeneratedPlan(ctx, db, conv.ID, `{"session_date":"2025-03-01","exercises":[]}`); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	second, err := CreateGeneratedPlan(ctx, db, conv.ID, `{"session_date":"2025-03-02","exercises":[]}`)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	latest, err := LatestUnacceptedPlan(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %d, want %d", latest.ID, second.ID)
	}

	s, _ := CreateSession(ctx, db, SessionParams{ClientID: c.ID, SessionDate: "2025-03-02"})
	n, err := MarkPlansAccepted(ctx, db, conv.ID, s.ID)
	if err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	if n != 2 {
		t.Errorf("marked %d, want 2", n)
	}

	n, err = MarkPlansAccepted(ctx, db, conv.ID, s.ID)
	if err != nil || n != 0 {
		t.Errorf("second mark = %d, %v; want 0", n, err)
	}
	if _, err := LatestUnacceptedPlan(ctx, db, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after acceptance", err)
	}
}
