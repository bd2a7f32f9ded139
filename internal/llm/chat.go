package llm

import (
	"context"
	"fmt"
	"strings"
)

// ChatRequest is one planning turn: the conversation so far plus everything
// needed to build the system prompt.
type ChatRequest struct {
	Messages  []Message
	Client    *ClientContext
	Exercises []string
	Gyms      []string
	Provider  string
	Model     string
	APIKey    string
}

// ChatResult is the assistant reply and the plan extracted from it, if any.
type ChatResult struct {
	Message  string        `json:"message"`
	Plan     *TrainingPlan `json:"plan"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
}

// Chat prepends the system prompt to the conversation, dispatches it to the
// selected provider and extracts any embedded plan. The provider call is
// bounded by the registry timeout.
func Chat(ctx context.Context, reg *Registry, req ChatRequest) (*ChatResult, error) {
	if req.Messages == nil {
		return nil, ErrInvalidMessages
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	providerName := strings.ToLower(strings.TrimSpace(req.Provider))
	if providerName == "" {
		providerName = "openai"
	}
	provider, err := reg.Get(providerName)
	if err != nil {
		return nil, err
	}

	full := make([]Message, 0, len(req.Messages)+1)
	full = append(full, Message{Role: RoleSystem, Content: BuildSystemPrompt(req.Client, req.Exercises, req.Gyms)})
	full = append(full, req.Messages...)

	if reg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reg.Timeout)
		defer cancel()
	}

	reply, err := provider.Complete(ctx, full, req.APIKey, req.Model)
	if err != nil {
		return nil, fmt.Errorf("llm: %s completion: %w", provider.Name(), err)
	}

	plan, _ := ExtractTrainingPlan(reply)
	return &ChatResult{
		Message:  reply,
		Plan:     plan,
		Provider: providerName,
		Model:    req.Model,
	}, nil
}
