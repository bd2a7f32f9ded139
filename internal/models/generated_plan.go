package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GeneratedPlan is a training plan proposed by the assistant. It moves from
// unaccepted to accepted exactly once.
type GeneratedPlan struct {
	ID             int64
	ConversationID int64
	PlanJSON       string
	Accepted       bool
	SessionID      sql.NullInt64
	CreatedAt      time.Time
}

// CreateGeneratedPlan stores a proposed plan for the conversation.
func CreateGeneratedPlan(ctx context.Context, db DBTX, conversationID int64, planJSON string) (*GeneratedPlan, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO ai_generated_plans (conversation_id, plan_json) VALUES (?, ?) RETURNING id`,
		conversationID, planJSON,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("models: create plan for conversation %d: %w", conversationID, err)
	}
	return getGeneratedPlan(ctx, db, `WHERE id = ?`, id)
}

func getGeneratedPlan(ctx context.Context, db DBTX, where string, args ...any) (*GeneratedPlan, error) {
	p := &GeneratedPlan{}
	err := db.QueryRowContext(ctx,
		`SELECT id, conversation_id, plan_json, accepted, session_id, created_at
		 FROM ai_generated_plans `+where, args...,
	).Scan(&p.ID, &p.ConversationID, &p.PlanJSON, &p.Accepted, &p.SessionID, &p.CreatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get plan: %w", err)
	}
	return p, nil
}

// LatestUnacceptedPlan returns the most recent plan of the conversation that
// has not been accepted, or ErrNotFound.
func LatestUnacceptedPlan(ctx context.Context, db DBTX, conversationID int64) (*GeneratedPlan, error) {
	return getGeneratedPlan(ctx, db,
		`WHERE conversation_id = ? AND accepted = 0 ORDER BY created_at DESC, id DESC LIMIT 1`,
		conversationID)
}

// MarkPlansAccepted flags every unaccepted plan of the conversation as
// accepted and links it to the session. Already accepted plans are left
// alone, so a repeated call changes nothing. Returns the rows updated.
func MarkPlansAccepted(ctx context.Context, db DBTX, conversationID, sessionID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE ai_generated_plans SET accepted = 1, session_id = ?
		 WHERE conversation_id = ? AND accepted = 0`, sessionID, conversationID)
	if err != nil {
		return 0, fmt.Errorf("models: accept plans for conversation %d: %w", conversationID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
