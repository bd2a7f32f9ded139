package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultOpenAIModel is used when the coach has not chosen a model.
const DefaultOpenAIModel = "gpt-4o"

// reasoningPrefixes identify models that take max_completion_tokens and
// reject sampling parameters.
var reasoningPrefixes = []string{"o1", "o3", "o4"}

// IsReasoningModel reports whether model belongs to the reasoning tier.
func IsReasoningModel(model string) bool {
	for _, p := range reasoningPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// OpenAIProvider implements Provider for the chat-completions API.
type OpenAIProvider struct {
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI provider.
// If baseURL is empty, it defaults to the official OpenAI API.
func NewOpenAIProvider(baseURL string, client *http.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *OpenAIProvider) Name() string { return "OpenAI" }

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, apiKey, model string) (string, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}

	body := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if IsReasoningModel(model) {
		body["max_completion_tokens"] = 16000
	} else {
		body["max_tokens"] = 2000
		body["temperature"] = 0.7
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm/openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("llm/openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm/openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm/openai: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newAPIError(p.Name(), resp.StatusCode, respBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("llm/openai: parse response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("llm/openai: no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}
