package planning

import (
	"errors"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/models"
)

var (
	// ErrNoPlan is returned by AcceptPlan when the conversation has no
	// unaccepted plan. Nothing is written.
	ErrNoPlan = errors.New("planning: no plan to accept")

	// ErrNoSettings is returned when the coach never configured AI settings.
	ErrNoSettings = errors.New("planning: ai settings not configured")

	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("planning: empty message")
)

// Error pairs an underlying failure with the message shown to the coach.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "planning: " + e.Msg
	}
	return "planning: " + e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the Italian message for err.
func UserMessage(err error) string {
	var pe *Error
	switch {
	case errors.As(err, &pe):
		return pe.Msg
	case errors.Is(err, ErrNoPlan):
		return "Nessun piano da accettare"
	case errors.Is(err, ErrNoSettings):
		return "Impostazioni AI non configurate"
	case errors.Is(err, ErrEmptyMessage):
		return "Il messaggio è vuoto"
	case errors.Is(err, models.ErrNotFound):
		return "Conversazione o cliente non trovato"
	}
	return llm.UserMessage(err)
}

func providerLabel(provider string) string {
	if provider == models.ProviderAnthropic {
		return "Anthropic"
	}
	return "OpenAI"
}
