package handlers

import (
	"database/sql"
	"time"

	"github.com/carpenike/helix/internal/models"
)

// JSON shapes returned by the API. Models keep sql.Null* fields; views flatten
// them to pointers so absent values encode as null.

type userView struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

type clientView struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	BirthDate     *string `json:"birth_date"`
	Age           *int    `json:"age"`
	Gender        *string `json:"gender"`
	CurrentGoal   *string `json:"current_goal"`
	PhysicalNotes *string `json:"physical_notes"`
}

type goalView struct {
	ID        int64      `json:"id"`
	Goal      string     `json:"goal"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Current   bool       `json:"current"`
}

type gymView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

type exerciseView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Global      bool    `json:"global"`
}

type sessionView struct {
	ID          int64                  `json:"id"`
	ClientID    int64                  `json:"client_id"`
	GymID       *int64                 `json:"gym_id"`
	GymName     *string                `json:"gym_name"`
	SessionDate string                 `json:"session_date"`
	Status      string                 `json:"status"`
	Notes       *string                `json:"notes"`
	Exercises   []*sessionExerciseView `json:"exercises,omitempty"`
}

type sessionExerciseView struct {
	ID              int64    `json:"id"`
	ExerciseID      int64    `json:"exercise_id"`
	ExerciseName    string   `json:"exercise_name"`
	OrderIndex      int      `json:"order_index"`
	Sets            *int64   `json:"sets"`
	Reps            *int64   `json:"reps"`
	WeightKg        *float64 `json:"weight_kg"`
	DurationSeconds *int64   `json:"duration_seconds"`
	Notes           *string  `json:"notes"`
	Completed       bool     `json:"completed"`
	Skipped         bool     `json:"skipped"`
}

type conversationView struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	ClientName   string    `json:"client_name,omitempty"`
	Title        *string   `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageView struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type aiSettingsView struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	OpenAIKey      string `json:"openai_api_key"`
	AnthropicKey   string `json:"anthropic_api_key"`
	HasPersonalKey bool   `json:"has_personal_api_key"`
	Configured     bool   `json:"configured"`
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func float64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func newUserView(u *models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: strPtr(u.Email)}
}

func newClientView(c *models.Client, now time.Time) clientView {
	v := clientView{
		ID:            c.ID,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		BirthDate:     strPtr(c.BirthDate),
		Gender:        strPtr(c.Gender),
		CurrentGoal:   strPtr(c.CurrentGoal),
		PhysicalNotes: strPtr(c.PhysicalNotes),
	}
	if age, ok := c.DisplayAge(now); ok {
		v.Age = &age
	}
	return v
}

func newGoalView(g *models.GoalHistoryEntry) goalView {
	v := goalView{ID: g.ID, Goal: g.Goal, StartedAt: g.StartedAt, Current: g.Current()}
	if g.EndedAt.Valid {
		t := g.EndedAt.Time
		v.EndedAt = &t
	}
	return v
}

func newGymView(g *models.Gym) gymView {
	return gymView{ID: g.ID, Name: g.Name, Address: strPtr(g.Address), Description: strPtr(g.Description)}
}

func newExerciseView(e *models.Exercise) exerciseView {
	return exerciseView{ID: e.ID, Name: e.Name, Description: strPtr(e.Description), Global: e.Global()}
}

func newSessionView(s *models.TrainingSession) *sessionView {
	return &sessionView{
		ID:          s.ID,
		ClientID:    s.ClientID,
		GymID:       int64Ptr(s.GymID),
		GymName:     strPtr(s.GymName),
		SessionDate: s.SessionDate,
		Status:      s.Status,
		Notes:       strPtr(s.Notes),
	}
}

func newSessionExerciseView(e *models.SessionExercise) *sessionExerciseView {
	return &sessionExerciseView{
		ID:              e.ID,
		ExerciseID:      e.ExerciseID,
		ExerciseName:    e.ExerciseName,
		OrderIndex:      e.OrderIndex,
		Sets:            int64Ptr(e.Sets),
		Reps:            int64Ptr(e.Reps),
		WeightKg:        float64Ptr(e.WeightKg),
		DurationSeconds: int64Ptr(e.DurationSeconds),
		Notes:           strPtr(e.Notes),
		Completed:       e.Completed,
		Skipped:         e.Skipped,
	}
}

func newConversationView(c *models.Conversation) conversationView {
	return conversationView{
		ID:           c.ID,
		ClientID:     c.ClientID,
		ClientName:   c.ClientName,
		Title:        strPtr(c.Title),
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func newMessageView(m *models.Message) messageView {
	return messageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

func newAISettingsView(s *models.AISettings) aiSettingsView {
	return aiSettingsView{
		Provider:       s.Provider,
		Model:          s.Model,
		OpenAIKey:      s.MaskedOpenAIKey(),
		AnthropicKey:   s.MaskedAnthropicKey(),
		HasPersonalKey: s.HasPersonalKey,
		Configured:     s.APIKey() != "",
	}
}
