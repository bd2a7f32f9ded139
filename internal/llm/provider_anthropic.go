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

// DefaultAnthropicModel is used when the coach has not chosen a model.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	baseURL string
	client  *http.Client
}

// NewAnthropicProvider creates an Anthropic provider.
// If baseURL is empty, it defaults to the official Anthropic API.
func NewAnthropicProvider(baseURL string, client *http.Client) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &AnthropicProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *AnthropicProvider) Name() string { return "Anthropic" }

func (p *AnthropicProvider) Complete(ctx context.Context, messages []Message, apiKey, model string) (string, error) {
	if model == "" {
		model = DefaultAnthropicModel
	}

	// The system prompt travels in its own field; only user and assistant
	// turns go in the message array.
	var system string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system == "" {
				system = m.Content
			}
			continue
		}
		turns = append(turns, m)
	}

	body := map[string]any{
		"model":      model,
		"max_tokens": 2000,
		"messages":   turns,
	}
	if system != "" {
		body["system"] = system
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm/anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("llm/anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm/anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm/anthropic: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newAPIError(p.Name(), resp.StatusCode, respBody)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("llm/anthropic: parse response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("llm/anthropic: no content blocks in response")
	}
	return result.Content[0].Text, nil
}
