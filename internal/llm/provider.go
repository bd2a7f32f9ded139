package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProvider is returned when no provider is registered under the
// requested name.
var ErrUnknownProvider = errors.New("llm: unknown provider")

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for LLM backends.
type Provider interface {
	// Complete sends the ordered conversation (system message first, if any)
	// and returns the assistant's reply text.
	Complete(ctx context.Context, messages []Message, apiKey, model string) (string, error)

	// Name returns the display name of this provider (e.g. "OpenAI").
	Name() string
}

// Registry maps provider identifiers ("openai", "anthropic") to
// implementations. It is the only place that decides which backend serves a
// request.
type Registry struct {
	// Timeout bounds every provider call made through Chat. Zero means no
	// limit beyond the caller's context.
	Timeout time.Duration

	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{Timeout: timeout, providers: make(map[string]Provider)}
}

// Register adds or replaces the provider for name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(name)] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Endpoints configures the built-in providers.
type Endpoints struct {
	OpenAIBaseURL    string
	AnthropicBaseURL string
	HTTPClient       *http.Client
}

// NewDefaultRegistry registers the OpenAI and Anthropic providers.
func NewDefaultRegistry(ep Endpoints, timeout time.Duration) *Registry {
	r := NewRegistry(timeout)
	r.Register("openai", NewOpenAIProvider(ep.OpenAIBaseURL, ep.HTTPClient))
	r.Register("anthropic", NewAnthropicProvider(ep.AnthropicBaseURL, ep.HTTPClient))
	return r
}
