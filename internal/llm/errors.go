package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidMessages is returned when a chat request carries no message list.
	ErrInvalidMessages = errors.New("llm: invalid messages format")

	// ErrMissingAPIKey is returned when a chat request has no provider credential.
	ErrMissingAPIKey = errors.New("llm: api key not configured")
)

// MissingAPIKeyMessage is shown to coaches who have not stored a provider key.
const MissingAPIKeyMessage = "API key non configurata. Vai nelle impostazioni per configurare la tua API key."

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string // provider error type/code, if the body carried one
	Message    string // provider error message, if the body carried one
	Body       string // raw response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// UserMessage returns a short Italian explanation suitable for the UI.
func (e *APIError) UserMessage() string {
	detail := strings.ToLower(e.Code + " " + e.Message)
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("API key %s non valida o scaduta. Controlla le impostazioni AI.", e.Provider)
	case strings.Contains(detail, "quota") || strings.Contains(detail, "credit") || strings.Contains(detail, "billing"):
		return fmt.Sprintf("Credito insufficiente sull'account %s.", e.Provider)
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("Limite di richieste %s raggiunto. Riprova tra qualche minuto.", e.Provider)
	case e.StatusCode == http.StatusNotFound || strings.Contains(detail, "model"):
		return fmt.Sprintf("Modello non trovato su %s. Verifica il nome del modello nelle impostazioni.", e.Provider)
	case e.StatusCode >= 500:
		return fmt.Sprintf("%s è temporaneamente non disponibile. Riprova più tardi.", e.Provider)
	default:
		return fmt.Sprintf("Errore dal servizio %s (HTTP %d).", e.Provider, e.StatusCode)
	}
}

// newAPIError builds an APIError from a failed response, pulling the
// provider's error type and message out of the usual {"error": {...}} body.
func newAPIError(provider string, status int, body []byte) *APIError {
	apiErr := &APIError{Provider: provider, StatusCode: status, Body: string(body)}
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Code    any    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Code = errResp.Error.Type
		if code, ok := errResp.Error.Code.(string); ok && code != "" {
			apiErr.Code = code
		}
	}
	return apiErr
}

// UserMessage extracts a user-facing message from err. Provider errors are
// localized; anything else gets a generic message.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return MissingAPIKeyMessage
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "L'assistente AI non ha risposto in tempo. Riprova."
	}
	if errors.Is(err, ErrUnknownProvider) {
		return "Provider AI non supportato. Scegli OpenAI o Anthropic nelle impostazioni."
	}
	return "Errore nella comunicazione con l'assistente AI. Riprova."
}
