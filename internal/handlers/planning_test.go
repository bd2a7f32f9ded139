package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/models"
)

const planReply = "Ecco la proposta.\n```training_plan\n" + `{
  "gym_name": "Centro Fitness",
  "session_date": "2025-03-15",
  "exercises": [
    {"exercise_name": "Squat", "sets": 3, "reps": 10, "weight_kg": 40},
    {"exercise_name": "Plank", "duration_seconds": 60}
  ],
  "notes": "Riscaldamento 10 minuti"
}` + "\n```"

func TestAIChat_InvalidMessages(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []map[string]any{
		{"aiSettings": map[string]string{"apiKey": "sk-test"}},
		{"messages": "ciao", "aiSettings": map[string]string{"apiKey": "sk-test"}},
	} {
		rr := s.do(t, http.MethodPost, "/api/ai-chat", s.key, body)
		expectStatus(t, rr, http.StatusBadRequest)
		if msg := errorMessage(t, rr); msg != "Invalid messages format" {
			t.Errorf("error = %q", msg)
		}
	}
	if s.provider.CallCount() != 0 {
		t.Errorf("provider called %d times", s.provider.CallCount())
	}
}

func TestAIChat_MissingAPIKey(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/ai-chat", s.key, map[string]any{
		"messages":   []llm.Message{{Role: "user", Content: "Ciao"}},
		"aiSettings": map[string]string{"provider": "openai", "model": "gpt-4o"},
	})
	expectStatus(t, rr, http.StatusBadRequest)
	if msg := errorMessage(t, rr); msg != llm.MissingAPIKeyMessage {
		t.Errorf("error = %q", msg)
	}
}

func TestAIChat_ReturnsReplyAndPlan(t *testing.T) {
	s := newTestServer(t)
	s.provider.Reply = planReply

	rr := s.do(t, http.MethodPost, "/api/ai-chat", s.key, map[string]any{
		"messages":           []llm.Message{{Role: "user", Content: "Prepara una sessione"}},
		"clientContext":      map[string]any{"firstName": "Anna", "lastName": "Bianchi", "recentSessions": []any{}},
		"availableExercises": []string{"Squat", "Plank"},
		"availableGyms":      []map[string]any{{"id": "g1", "name": "Centro Fitness"}, {"id": 2, "name": "Palestra Nord"}},
		"aiSettings":         map[string]string{"provider": "anthropic", "model": "claude-test", "apiKey": "sk-ant"},
	})
	expectStatus(t, rr, http.StatusOK)

	var res llm.ChatResult
	decodeBody(t, rr, &res)
	if res.Message != planReply {
		t.Errorf("message = %q", res.Message)
	}
	if res.Plan == nil || len(res.Plan.Exercises) != 2 {
		t.Fatalf("plan = %+v, want 2 exercises", res.Plan)
	}
	if res.Provider != "anthropic" || res.Model != "claude-test" {
		t.Errorf("provider/model = %q/%q", res.Provider, res.Model)
	}

	call := s.provider.Calls[0]
	if call.APIKey != "sk-ant" {
		t.Errorf("api key = %q", call.APIKey)
	}
	if call.Messages[0].Role != llm.RoleSystem || !strings.Contains(call.Messages[0].Content, "Anna") {
		t.Errorf("system prompt missing client context")
	}
	if !strings.Contains(call.Messages[0].Content, "Centro Fitness, Palestra Nord") {
		t.Errorf("system prompt missing gyms:\n%s", call.Messages[0].Content)
	}
}

func TestAIChat_GymNamesAsStrings(t *testing.T) {
	s := newTestServer(t)
	s.provider.Reply = "Va bene."

	rr := s.do(t, http.MethodPost, "/api/ai-chat", s.key, map[string]any{
		"messages":      []llm.Message{{Role: "user", Content: "Ciao"}},
		"availableGyms": []string{"Centro Fitness"},
		"aiSettings":    map[string]string{"apiKey": "sk-test"},
	})
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(s.provider.Calls[0].Messages[0].Content, "Centro Fitness") {
		t.Error("system prompt missing gym")
	}
}

func TestAIChat_ProviderFailure(t *testing.T) {
	s := newTestServer(t)
	s.provider.Err = errors.New("connection reset")

	rr := s.do(t, http.MethodPost, "/api/ai-chat", s.key, map[string]any{
		"messages":   []llm.Message{{Role: "user", Content: "Ciao"}},
		"aiSettings": map[string]string{"apiKey": "sk-test"},
	})
	expectStatus(t, rr, http.StatusInternalServerError)
	if msg := errorMessage(t, rr); msg == "" {
		t.Error("expected an error message")
	}
}

func TestAIChat_FailureLoggedWithRequestID(t *testing.T) {
	s := newTestServer(t)
	s.provider.Err = errors.New("connection reset")
	reg := llm.NewRegistry(time.Second)
	reg.Register(models.ProviderOpenAI, s.provider)
	logger, hook := test.NewNullLogger()
	s.handler = NewRouter(Deps{DB: s.db, Sessions: testSessionManager(), Providers: reg, Logger: logger})

	rr := s.do(t, http.MethodPost, "/api/ai-chat", s.key, map[string]any{
		"messages":   []llm.Message{{Role: "user", Content: "Ciao"}},
		"aiSettings": map[string]string{"apiKey": "sk-test"},
	})
	expectStatus(t, rr, http.StatusInternalServerError)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "handlers: ai chat" {
			found = true
			if e.Data["request_id"] != rr.Header().Get("X-Request-ID") {
				t.Errorf("request_id = %v, header %q", e.Data["request_id"], rr.Header().Get("X-Request-ID"))
			}
		}
	}
	if !found {
		t.Error("failure not logged through the router logger")
	}
}

func TestConversations_SendAndAccept(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	client := seedClient(t, s.db, s.coach.ID, "Anna", "Bianchi")
	gym, err := models.CreateGym(ctx, s.db, s.coach.ID, "Centro Fitness", "Via Roma 1", "")
	if err != nil {
		t.Fatalf("create gym: %v", err)
	}
	if _, err := models.CreateExercise(ctx, s.db, &s.coach.ID, "squat", ""); err != nil {
		t.Fatalf("create exercise: %v", err)
	}

	rr := s.do(t, http.MethodPut, "/api/settings/ai", s.key, map[string]any{
		"provider": "openai", "model": "gpt-4o", "openai_api_key": "sk-openai-123456",
	})
	expectStatus(t, rr, http.StatusOK)

	rr = s.do(t, http.MethodPost, "/api/conversations", s.key, map[string]int64{"client_id": client.ID})
	expectStatus(t, rr, http.StatusCreated)
	var conv conversationView
	decodeBody(t, rr, &conv)

	s.provider.Reply = planReply
	rr = s.do(t, http.MethodPost, "/api/conversations/"+itoa(conv.ID)+"/messages", s.key,
		map[string]string{"content": "Prepara la sessione di domani"})
	expectStatus(t, rr, http.StatusOK)
	var sent struct {
		AssistantMessage messageView       `json:"assistant_message"`
		Plan             *llm.TrainingPlan `json:"plan"`
	}
	decodeBody(t, rr, &sent)
	if sent.Plan == nil || sent.AssistantMessage.Role != models.RoleAssistant {
		t.Fatalf("send response = %+v", sent)
	}

	rr = s.do(t, http.MethodGet, "/api/conversations/"+itoa(conv.ID), s.key, nil)
	expectStatus(t, rr, http.StatusOK)
	var detail conversationDetail
	decodeBody(t, rr, &detail)
	if len(detail.Messages) != 2 || detail.PendingPlan == nil {
		t.Fatalf("detail: %d messages, pending plan %v", len(detail.Messages), detail.PendingPlan)
	}

	rr = s.do(t, http.MethodPost, "/api/conversations/"+itoa(conv.ID)+"/accept", s.key, nil)
	expectStatus(t, rr, http.StatusCreated)
	var accepted struct {
		Session sessionView `json:"session"`
		Added   int         `json:"exercises_added"`
		Created []string    `json:"exercises_created"`
	}
	decodeBody(t, rr, &accepted)
	if accepted.Added != 2 {
		t.Errorf("added = %d, want 2", accepted.Added)
	}
	if len(accepted.Created) != 1 || accepted.Created[0] != "Plank" {
		t.Errorf("created = %v, want [Plank]", accepted.Created)
	}
	if accepted.Session.GymID == nil || *accepted.Session.GymID != gym.ID {
		t.Errorf("gym = %v, want %d", accepted.Session.GymID, gym.ID)
	}
	if accepted.Session.Status != models.SessionPlanned {
		t.Errorf("status = %q", accepted.Session.Status)
	}

	rr = s.do(t, http.MethodPost, "/api/conversations/"+itoa(conv.ID)+"/accept", s.key, nil)
	expectStatus(t, rr, http.StatusBadRequest)
	if msg := errorMessage(t, rr); msg != "Nessun piano da accettare" {
		t.Errorf("second accept error = %q", msg)
	}

	rr = s.do(t, http.MethodGet, "/api/sessions/"+itoa(accepted.Session.ID), s.key, nil)
	expectStatus(t, rr, http.StatusOK)
	var session sessionView
	decodeBody(t, rr, &session)
	if len(session.Exercises) != 2 || session.Exercises[0].ExerciseName != "squat" {
		t.Errorf("session exercises = %+v", session.Exercises)
	}
}

// The personal API key row exists but holds no provider credential.
func TestConversations_SendWithoutProviderKey(t *testing.T) {
	s := newTestServer(t)
	client := seedClient(t, s.db, s.coach.ID, "Anna", "Bianchi")

	rr := s.do(t, http.MethodPost, "/api/conversations", s.key, map[string]int64{"client_id": client.ID})
	expectStatus(t, rr, http.StatusCreated)
	var conv conversationView
	decodeBody(t, rr, &conv)

	rr = s.do(t, http.MethodPost, "/api/conversations/"+itoa(conv.ID)+"/messages", s.key,
		map[string]string{"content": "Ciao"})
	expectStatus(t, rr, http.StatusBadRequest)
	if msg := errorMessage(t, rr); msg != "API key per OpenAI non configurata" {
		t.Errorf("error = %q", msg)
	}
	if s.provider.CallCount() != 0 {
		t.Errorf("provider called %d times", s.provider.CallCount())
	}
}

func TestConversations_OtherCoachGets404(t *testing.T) {
	s := newTestServer(t)
	client := seedClient(t, s.db, s.coach.ID, "Anna", "Bianchi")
	other := seedCoach(t, s.db, "other")
	otherKey := issueKey(t, s.db, other.ID)

	rr := s.do(t, http.MethodPost, "/api/conversations", otherKey, map[string]int64{"client_id": client.ID})
	expectStatus(t, rr, http.StatusNotFound)

	rr = s.do(t, http.MethodPost, "/api/conversations", s.key, map[string]int64{"client_id": client.ID})
	expectStatus(t, rr, http.StatusCreated)
	var conv conversationView
	decodeBody(t, rr, &conv)

	rr = s.do(t, http.MethodGet, "/api/conversations/"+itoa(conv.ID), otherKey, nil)
	expectStatus(t, rr, http.StatusNotFound)

	rr = s.do(t, http.MethodGet, "/api/conversations?client_id="+itoa(client.ID), s.key, nil)
	expectStatus(t, rr, http.StatusOK)
	var list []conversationView
	decodeBody(t, rr, &list)
	if len(list) != 1 {
		t.Errorf("conversations = %d, want 1", len(list))
	}
}
