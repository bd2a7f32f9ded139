// Package planning runs the AI session-planning conversation between a coach
// and the assistant. It sends coach messages through the language model with
// the client's context and turns an accepted plan into a training session.
package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/metrics"
	"github.com/carpenike/helix/internal/models"
)

// Notifier receives a message when a plan becomes a session.
type Notifier interface {
	Broadcast(ctx context.Context, title, body string)
}

// Service orchestrates conversations. Store and Providers are required; the
// remaining fields are optional.
type Service struct {
	Store     Store
	Providers *llm.Registry
	Notifier  Notifier
	Metrics   *metrics.Manager
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// NewService creates a Service with the standard logger and wall clock.
func NewService(store Store, providers *llm.Registry) *Service {
	return &Service{
		Store:     store,
		Providers: providers,
		Log:       logrus.StandardLogger(),
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// ConversationView is a conversation with its ordered messages and the
// newest plan still waiting for acceptance.
type ConversationView struct {
	Conversation *models.Conversation
	Messages     []*models.Message
	PendingPlan  *llm.TrainingPlan
}

// StartConversation opens a conversation about one of the coach's clients.
func (s *Service) StartConversation(ctx context.Context, coachID, clientID int64) (*models.Conversation, error) {
	if _, err := s.Store.CoachClient(ctx, coachID, clientID); err != nil {
		return nil, fmt.Errorf("planning: start conversation for client %d: %w", clientID, err)
	}
	conv, err := s.Store.CreateConversation(ctx, coachID, clientID)
	if err != nil {
		return nil, fmt.Errorf("planning: start conversation for client %d: %w", clientID, err)
	}
	return conv, nil
}

// ListConversations returns the coach's conversations, newest first,
// optionally limited to one client.
func (s *Service) ListConversations(ctx context.Context, coachID int64, clientID *int64) ([]*models.Conversation, error) {
	convs, err := s.Store.ListConversations(ctx, coachID, clientID)
	if err != nil {
		return nil, fmt.Errorf("planning: list conversations: %w", err)
	}
	return convs, nil
}

// LoadConversation returns everything needed to resume a conversation.
func (s *Service) LoadConversation(ctx context.Context, coachID, conversationID int64) (*ConversationView, error) {
	conv, err := s.ownedConversation(ctx, coachID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("planning: load messages of conversation %d: %w", conv.ID, err)
	}

	view := &ConversationView{Conversation: conv, Messages: msgs}
	stored, err := s.Store.LatestUnacceptedPlan(ctx, conv.ID)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("planning: load plan of conversation %d: %w", conv.ID, err)
	default:
		plan, err := decodePlan(stored)
		if err != nil {
			s.log().WithError(err).WithField("plan_id", stored.ID).Warn("planning: ignoring unreadable plan")
		} else {
			view.PendingPlan = plan
		}
	}
	return view, nil
}

// ownedConversation loads the conversation and hides it from other coaches.
func (s *Service) ownedConversation(ctx context.Context, coachID, conversationID int64) (*models.Conversation, error) {
	conv, err := s.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("planning: load conversation %d: %w", conversationID, err)
	}
	if conv.UserID != coachID {
		return nil, fmt.Errorf("planning: load conversation %d: %w", conversationID, models.ErrNotFound)
	}
	return conv, nil
}

// SendResult is the outcome of one planning turn.
type SendResult struct {
	UserMessage      *models.Message
	AssistantMessage *models.Message
	Plan             *llm.TrainingPlan
	Provider         string
	Model            string
}

// SendMessage stores the coach's message, asks the assistant for a reply with
// the client's context and stores the reply plus any plan it proposes.
//
// Settings are checked before anything is written. Once the user message is
// stored it stays, even when the provider call fails.
func (s *Service) SendMessage(ctx context.Context, coachID, conversationID int64, content string) (*SendResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	conv, err := s.ownedConversation(ctx, coachID, conversationID)
	if err != nil {
		return nil, err
	}

	settings, err := s.Store.AISettings(ctx, coachID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNoSettings
	}
	if err != nil {
		return nil, fmt.Errorf("planning: load ai settings: %w", err)
	}
	apiKey := settings.APIKey()
	if strings.TrimSpace(apiKey) == "" {
		return nil, &Error{
			Msg: fmt.Sprintf("API key per %s non configurata", providerLabel(settings.Provider)),
			Err: llm.ErrMissingAPIKey,
		}
	}

	history, err := s.Store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("planning: load history of conversation %d: %w", conv.ID, err)
	}
	chat := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == models.RoleSystem {
			continue
		}
		chat = append(chat, llm.Message{Role: m.Role, Content: m.Content})
	}
	chat = append(chat, llm.Message{Role: llm.RoleUser, Content: content})

	userMsg, err := s.Store.AppendMessage(ctx, conv.ID, models.RoleUser, content)
	if err != nil {
		return nil, fmt.Errorf("planning: save user message: %w", err)
	}

	var (
		cc        *llm.ClientContext
		exercises []string
		gyms      []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cc, err = llm.BuildClientContext(gctx, s.Store, conv.ClientID, s.now())
		return err
	})
	g.Go(func() error {
		list, err := s.Store.ListExercises(gctx, coachID)
		if err != nil {
			return fmt.Errorf("planning: load exercises: %w", err)
		}
		exercises = make([]string, 0, len(list))
		for _, e := range list {
			exercises = append(exercises, e.Name)
		}
		return nil
	})
	g.Go(func() error {
		list, err := s.Store.ListGyms(gctx, coachID)
		if err != nil {
			return fmt.Errorf("planning: load gyms: %w", err)
		}
		gyms = make([]string, 0, len(list))
		for _, gym := range list {
			gyms = append(gyms, gym.Name)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	provider := settings.Provider
	if provider == "" {
		provider = models.ProviderOpenAI
	}
	start := time.Now()
	res, err := llm.Chat(ctx, s.Providers, llm.ChatRequest{
		Messages:  chat,
		Client:    cc,
		Exercises: exercises,
		Gyms:      gyms,
		Provider:  provider,
		Model:     settings.Model,
		APIKey:    apiKey,
	})
	if err != nil {
		s.Metrics.ObserveChat(provider, "error", time.Since(start))
		return nil, &Error{Msg: llm.UserMessage(err), Err: err}
	}
	s.Metrics.ObserveChat(provider, "ok", time.Since(start))

	assistantMsg, err := s.Store.AppendMessage(ctx, conv.ID, models.RoleAssistant, res.Message)
	if err != nil {
		return nil, fmt.Errorf("planning: save assistant message: %w", err)
	}

	if res.Plan != nil {
		s.Metrics.PlanExtracted()
		if err := s.savePlan(ctx, conv.ID, res.Plan); err != nil {
			s.log().WithError(err).WithField("conversation_id", conv.ID).Error("planning: save proposed plan")
		}
	}

	return &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Plan:             res.Plan,
		Provider:         res.Provider,
		Model:            res.Model,
	}, nil
}

func (s *Service) savePlan(ctx context.Context, conversationID int64, plan *llm.TrainingPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = s.Store.SavePlan(ctx, conversationID, string(data))
	return err
}

func decodePlan(p *models.GeneratedPlan) (*llm.TrainingPlan, error) {
	var plan llm.TrainingPlan
	if err := json.Unmarshal([]byte(p.PlanJSON), &plan); err != nil {
		return nil, fmt.Errorf("decode plan %d: %w", p.ID, err)
	}
	return &plan, nil
}
