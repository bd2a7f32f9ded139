package planning

import (
	"context"
	"database/sql"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/models"
)

// ConversationStore persists conversations, their messages and the plans
// proposed in them.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, clientID int64) (*models.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID int64, clientID *int64) ([]*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID int64, role, content string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]*models.Message, error)
	SetTitleIfEmpty(ctx context.Context, conversationID int64, title string) (bool, error)
	SavePlan(ctx context.Context, conversationID int64, planJSON string) (*models.GeneratedPlan, error)
	// LatestUnacceptedPlan returns models.ErrNotFound when every plan of the
	// conversation has been accepted.
	LatestUnacceptedPlan(ctx context.Context, conversationID int64) (*models.GeneratedPlan, error)
	MarkPlansAccepted(ctx context.Context, conversationID, sessionID int64) (int64, error)
}

// CatalogStore reads and extends a coach's exercises and gyms.
type CatalogStore interface {
	ListExercises(ctx context.Context, userID int64) ([]*models.Exercise, error)
	CreateExercise(ctx context.Context, userID int64, name, description string) (*models.Exercise, error)
	ListGyms(ctx context.Context, userID int64) ([]*models.Gym, error)
}

// SessionStore writes training sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, p models.SessionParams) (*models.TrainingSession, error)
	AddSessionExercises(ctx context.Context, sessionID int64, items []models.SessionExerciseParams) error
}

// Store is everything the planning service reads and writes.
type Store interface {
	llm.ContextSource
	ConversationStore
	CatalogStore
	SessionStore

	// CoachClient returns the client only if it belongs to the coach.
	CoachClient(ctx context.Context, userID, clientID int64) (*models.Client, error)
	AISettings(ctx context.Context, userID int64) (*models.AISettings, error)
}

// SQLStore implements Store over the models package.
type SQLStore struct {
	llm.DBSource
}

// NewSQLStore wraps db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DBSource: llm.DBSource{DB: db}}
}

func (s *SQLStore) CreateConversation(ctx context.Context, userID, clientID int64) (*models.Conversation, error) {
	return models.CreateConversation(ctx, s.DB, userID, clientID)
}

func (s *SQLStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	return models.GetConversation(ctx, s.DB, id)
}

func (s *SQLStore) ListConversations(ctx context.Context, userID int64, clientID *int64) ([]*models.Conversation, error) {
	return models.ListConversations(ctx, s.DB, userID, clientID)
}

func (s *SQLStore) AppendMessage(ctx context.Context, conversationID int64, role, content string) (*models.Message, error) {
	return models.AppendMessage(ctx, s.DB, conversationID, role, content)
}

func (s *SQLStore) ListMessages(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	return models.ListMessages(ctx, s.DB, conversationID)
}

func (s *SQLStore) SetTitleIfEmpty(ctx context.Context, conversationID int64, title string) (bool, error) {
	return models.SetConversationTitleIfEmpty(ctx, s.DB, conversationID, title)
}

func (s *SQLStore) SavePlan(ctx context.Context, conversationID int64, planJSON string) (*models.GeneratedPlan, error) {
	return models.CreateGeneratedPlan(ctx, s.DB, conversationID, planJSON)
}

func (s *SQLStore) LatestUnacceptedPlan(ctx context.Context, conversationID int64) (*models.GeneratedPlan, error) {
	return models.LatestUnacceptedPlan(ctx, s.DB, conversationID)
}

func (s *SQLStore) MarkPlansAccepted(ctx context.Context, conversationID, sessionID int64) (int64, error) {
	return models.MarkPlansAccepted(ctx, s.DB, conversationID, sessionID)
}

func (s *SQLStore) ListExercises(ctx context.Context, userID int64) ([]*models.Exercise, error) {
	return models.ListExercises(ctx, s.DB, userID)
}

func (s *SQLStore) CreateExercise(ctx context.Context, userID int64, name, description string) (*models.Exercise, error) {
	return models.CreateExercise(ctx, s.DB, &userID, name, description)
}

func (s *SQLStore) ListGyms(ctx context.Context, userID int64) ([]*models.Gym, error) {
	return models.ListGyms(ctx, s.DB, userID)
}

func (s *SQLStore) CreateSession(ctx context.Context, p models.SessionParams) (*models.TrainingSession, error) {
	return models.CreateSession(ctx, s.DB, p)
}

func (s *SQLStore) AddSessionExercises(ctx context.Context, sessionID int64, items []models.SessionExerciseParams) error {
	return models.AddSessionExercises(ctx, s.DB, sessionID, items)
}

func (s *SQLStore) CoachClient(ctx context.Context, userID, clientID int64) (*models.Client, error) {
	return models.GetCoachClient(ctx, s.DB, userID, clientID)
}

func (s *SQLStore) AISettings(ctx context.Context, userID int64) (*models.AISettings, error) {
	return models.GetAISettings(ctx, s.DB, userID)
}
