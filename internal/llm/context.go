// Package llm provides the AI session-planning pipeline for Helix.
//
// The package implements four layers:
//  1. Context Assembly: summarize one client's profile and recent training
//  2. Prompt Assembly: turn that summary plus the catalog into a system prompt
//  3. Provider dispatch: send the conversation to OpenAI or Anthropic
//  4. Plan Extraction: pull the structured training_plan block out of the reply
package llm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carpenike/helix/internal/models"
)

// RecentSessionLimit is how many completed sessions the context carries.
const RecentSessionLimit = 5

// ClientContext is the per-client document sent to the model. The JSON shape
// is also the clientContext body of the stateless chat endpoint.
type ClientContext struct {
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	Age            *int             `json:"age"`
	PhysicalNotes  *string          `json:"physicalNotes"`
	CurrentGoal    *string          `json:"currentGoal"`
	RecentSessions []SessionSummary `json:"recentSessions"`
}

// SessionSummary is one completed session in the context.
type SessionSummary struct {
	Date      string            `json:"date"`
	GymName   *string           `json:"gymName"`
	Exercises []ExerciseSummary `json:"exercises"`
}

// ExerciseSummary is one exercise of a past session.
type ExerciseSummary struct {
	Name            string   `json:"name"`
	Sets            *int64   `json:"sets,omitempty"`
	Reps            *int64   `json:"reps,omitempty"`
	WeightKg        *float64 `json:"weight_kg,omitempty"`
	DurationSeconds *int64   `json:"duration_seconds,omitempty"`
}

// ContextSource is the read-only data access the Context Builder needs.
type ContextSource interface {
	GetClient(ctx context.Context, clientID int64) (*models.Client, error)
	// CurrentGoal returns models.ErrNotFound when no goal entry is open.
	CurrentGoal(ctx context.Context, clientID int64) (*models.GoalHistoryEntry, error)
	RecentCompletedSessions(ctx context.Context, clientID int64, limit int) ([]*models.TrainingSession, error)
	SessionExercises(ctx context.Context, sessionID int64) ([]*models.SessionExercise, error)
}

// BuildClientContext assembles the context document for a client. It is
// read-only. A missing client yields an error wrapping models.ErrNotFound.
func BuildClientContext(ctx context.Context, src ContextSource, clientID int64, now time.Time) (*ClientContext, error) {
	client, err := src.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("llm: load client %d: %w", clientID, err)
	}

	cc := &ClientContext{
		FirstName:      client.FirstName,
		LastName:       client.LastName,
		Age:            approximateAge(client, now),
		PhysicalNotes:  nullStringPtr(client.PhysicalNotes),
		RecentSessions: []SessionSummary{},
	}

	goal, err := src.CurrentGoal(ctx, clientID)
	switch {
	case err == nil:
		g := goal.Goal
		cc.CurrentGoal = &g
	case errors.Is(err, models.ErrNotFound):
		cc.CurrentGoal = nullStringPtr(client.CurrentGoal)
	default:
		return nil, fmt.Errorf("llm: load goal for client %d: %w", clientID, err)
	}

	sessions, err := src.RecentCompletedSessions(ctx, clientID, RecentSessionLimit)
	if err != nil {
		return nil, fmt.Errorf("llm: load sessions for client %d: %w", clientID, err)
	}
	for _, s := range sessions {
		items, err := src.SessionExercises(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("llm: load exercises for session %d: %w", s.ID, err)
		}
		summary := SessionSummary{
			Date:      s.SessionDate,
			GymName:   nullStringPtr(s.GymName),
			Exercises: make([]ExerciseSummary, 0, len(items)),
		}
		for _, it := range items {
			summary.Exercises = append(summary.Exercises, ExerciseSummary{
				Name:            it.ExerciseName,
				Sets:            nullInt64Ptr(it.Sets),
				Reps:            nullInt64Ptr(it.Reps),
				WeightKg:        nullFloat64Ptr(it.WeightKg),
				DurationSeconds: nullInt64Ptr(it.DurationSeconds),
			})
		}
		cc.RecentSessions = append(cc.RecentSessions, summary)
	}

	return cc, nil
}

// approximateAge prefers the stored age. Without one it subtracts birth year
// from the current year and ignores month and day, so it can run one year
// ahead of Client.DisplayAge just before a birthday.
func approximateAge(c *models.Client, now time.Time) *int {
	if c.AgeYears.Valid {
		age := int(c.AgeYears.Int64)
		return &age
	}
	birth, ok := c.BirthTime()
	if !ok {
		return nil
	}
	age := now.Year() - birth.Year()
	return &age
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullFloat64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// DBSource implements ContextSource directly over the models package.
type DBSource struct {
	DB *sql.DB
}

func (s DBSource) GetClient(ctx context.Context, clientID int64) (*models.Client, error) {
	return models.GetClientByID(ctx, s.DB, clientID)
}

func (s DBSource) CurrentGoal(ctx context.Context, clientID int64) (*models.GoalHistoryEntry, error) {
	return models.CurrentGoal(ctx, s.DB, clientID)
}

func (s DBSource) RecentCompletedSessions(ctx context.Context, clientID int64, limit int) ([]*models.TrainingSession, error) {
	return models.ListRecentCompletedSessions(ctx, s.DB, clientID, limit)
}

func (s DBSource) SessionExercises(ctx context.Context, sessionID int64) ([]*models.SessionExercise, error) {
	return models.ListSessionExercises(ctx, s.DB, sessionID)
}
