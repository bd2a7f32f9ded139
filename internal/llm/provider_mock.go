package llm

import (
	"context"
	"sync"
)

// MockProvider implements Provider for testing. It returns Reply (or the next
// entry of Replies) and records every call.
type MockProvider struct {
	Reply   string
	Replies []string
	Err     error

	mu    sync.Mutex
	Calls []MockCall
}

// MockCall captures the arguments of one Complete call.
type MockCall struct {
	Messages []Message
	APIKey   string
	Model    string
}

// NewMockProvider creates a mock provider with a canned reply.
func NewMockProvider(reply string) *MockProvider {
	return &MockProvider{Reply: reply}
}

func (p *MockProvider) Name() string { return "Mock" }

func (p *MockProvider) Complete(_ context.Context, messages []Message, apiKey, model string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	p.Calls = append(p.Calls, MockCall{Messages: msgs, APIKey: apiKey, Model: model})

	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Replies) > 0 {
		reply := p.Replies[0]
		p.Replies = p.Replies[1:]
		return reply, nil
	}
	return p.Reply, nil
}

// CallCount returns how many times Complete was invoked.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
