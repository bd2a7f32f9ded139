package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/metrics"
	"github.com/carpenike/helix/internal/models"
	"github.com/carpenike/helix/internal/planning"
)

// AIChat serves the stateless chat endpoint: the caller supplies the whole
// conversation, the client context and the provider credentials.
type AIChat struct {
	Providers *llm.Registry
	Metrics   *metrics.Manager
}

type aiChatRequest struct {
	Messages           json.RawMessage    `json:"messages"`
	ClientContext      *llm.ClientContext `json:"clientContext"`
	AvailableExercises []string           `json:"availableExercises"`
	AvailableGyms      gymNames           `json:"availableGyms"`
	AISettings         struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		APIKey   string `json:"apiKey"`
	} `json:"aiSettings"`
}

// gymNames decodes availableGyms, a list of {id, name} objects. Bare
// strings are accepted as names.
type gymNames []string

func (g *gymNames) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	names := make(gymNames, 0, len(items))
	for _, raw := range items {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			names = append(names, name)
			continue
		}
		var gym struct {
			ID   any    `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &gym); err != nil {
			return err
		}
		names = append(names, gym.Name)
	}
	*g = names
	return nil
}

// Chat answers one turn and returns {message, plan, provider, model}.
func (h *AIChat) Chat(w http.ResponseWriter, r *http.Request) {
	var req aiChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid messages format")
		return
	}
	var msgs []llm.Message
	if err := json.Unmarshal(req.Messages, &msgs); err != nil || msgs == nil {
		writeError(w, http.StatusBadRequest, "Invalid messages format")
		return
	}

	start := time.Now()
	res, err := llm.Chat(r.Context(), h.Providers, llm.ChatRequest{
		Messages:  msgs,
		Client:    req.ClientContext,
		Exercises: req.AvailableExercises,
		Gyms:      req.AvailableGyms,
		Provider:  req.AISettings.Provider,
		Model:     req.AISettings.Model,
		APIKey:    req.AISettings.APIKey,
	})
	switch {
	case errors.Is(err, llm.ErrInvalidMessages):
		writeError(w, http.StatusBadRequest, "Invalid messages format")
		return
	case errors.Is(err, llm.ErrMissingAPIKey):
		writeError(w, http.StatusBadRequest, llm.MissingAPIKeyMessage)
		return
	case err != nil:
		h.Metrics.ObserveChat(req.AISettings.Provider, "error", time.Since(start))
		reqLog(r).WithError(err).Error("handlers: ai chat")
		writeError(w, http.StatusInternalServerError, llm.UserMessage(err))
		return
	}
	h.Metrics.ObserveChat(res.Provider, "ok", time.Since(start))
	if res.Plan != nil {
		h.Metrics.PlanExtracted()
	}
	writeJSON(w, http.StatusOK, res)
}

// Conversations serves the persistent planning conversations.
type Conversations struct {
	Service *planning.Service
}

type conversationDetail struct {
	conversationView
	Messages    []messageView     `json:"messages"`
	PendingPlan *llm.TrainingPlan `json:"pending_plan"`
}

// Create starts a conversation about one of the coach's clients.
func (h *Conversations) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID int64 `json:"client_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.ClientID <= 0 {
		writeError(w, http.StatusBadRequest, "client_id è obbligatorio")
		return
	}
	conv, err := h.Service.StartConversation(r.Context(), coachID(r), req.ClientID)
	if err != nil {
		planningError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newConversationView(conv))
}

// List returns the coach's conversations, optionally for one client.
func (h *Conversations) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryID(r, "client_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "client_id non valido")
		return
	}
	convs, err := h.Service.ListConversations(r.Context(), coachID(r), clientID)
	if err != nil {
		planningError(w, r, err)
		return
	}
	out := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, newConversationView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns a conversation with its messages and pending plan.
func (h *Conversations) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID conversazione non valido")
		return
	}
	view, err := h.Service.LoadConversation(r.Context(), coachID(r), id)
	if err != nil {
		planningError(w, r, err)
		return
	}
	out := conversationDetail{
		conversationView: newConversationView(view.Conversation),
		Messages:         make([]messageView, 0, len(view.Messages)),
		PendingPlan:      view.PendingPlan,
	}
	for _, m := range view.Messages {
		out.Messages = append(out.Messages, newMessageView(m))
	}
	out.MessageCount = len(out.Messages)
	writeJSON(w, http.StatusOK, out)
}

// Send posts the coach's message and returns the assistant reply.
func (h *Conversations) Send(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID conversazione non valido")
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	res, err := h.Service.SendMessage(r.Context(), coachID(r), id, req.Content)
	if err != nil {
		planningError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_message":      newMessageView(res.UserMessage),
		"assistant_message": newMessageView(res.AssistantMessage),
		"plan":              res.Plan,
		"provider":          res.Provider,
		"model":             res.Model,
	})
}

// Accept turns the conversation's pending plan into a planned session.
func (h *Conversations) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID conversazione non valido")
		return
	}
	var req struct {
		GymID *int64 `json:"gym_id"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Richiesta non valida")
			return
		}
	}

	res, err := h.Service.AcceptPlan(r.Context(), coachID(r), id, req.GymID)
	if err != nil {
		planningError(w, r, err)
		return
	}
	created := res.Created
	if created == nil {
		created = []string{}
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session":           newSessionView(res.Session),
		"exercises_added":   res.Added,
		"exercises_created": created,
		"exercises_skipped": skipped,
	})
}

// planningError maps a planning failure to a status and its Italian message.
func planningError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, planning.ErrEmptyMessage),
		errors.Is(err, planning.ErrNoSettings),
		errors.Is(err, planning.ErrNoPlan),
		errors.Is(err, llm.ErrMissingAPIKey):
		status = http.StatusBadRequest
	}
	entry := reqLog(r).WithError(err).WithField("path", r.URL.Path)
	if status == http.StatusInternalServerError {
		entry.Error("handlers: planning request failed")
	} else {
		entry.Debug("handlers: planning request rejected")
	}
	writeError(w, status, planning.UserMessage(err))
}
