package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/carpenike/helix/internal/models"
)

// Settings handles the coach's AI settings and personal API key.
type Settings struct {
	DB *sql.DB
}

type aiSettingsRequest struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	OpenAIKey    *string `json:"openai_api_key"`
	AnthropicKey *string `json:"anthropic_api_key"`
}

// GetAI returns the AI settings with masked credentials.
func (h *Settings) GetAI(w http.ResponseWriter, r *http.Request) {
	s, err := models.GetAISettings(r.Context(), h.DB, coachID(r))
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusOK, aiSettingsView{Provider: models.ProviderOpenAI})
		return
	}
	if err != nil {
		serverError(w, r, "get ai settings", err)
		return
	}
	writeJSON(w, http.StatusOK, newAISettingsView(s))
}

// UpdateAI saves provider, model and credentials. An omitted key, or the
// masked value echoed back, leaves the stored key untouched; "" clears it.
func (h *Settings) UpdateAI(w http.ResponseWriter, r *http.Request) {
	var req aiSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider != "" && provider != models.ProviderOpenAI && provider != models.ProviderAnthropic {
		writeError(w, http.StatusBadRequest, "Provider AI non supportato. Scegli OpenAI o Anthropic.")
		return
	}

	s, err := models.SaveAISettings(r.Context(), h.DB, coachID(r), models.AISettingsParams{
		Provider:     provider,
		Model:        req.Model,
		OpenAIKey:    unlessMasked(req.OpenAIKey),
		AnthropicKey: unlessMasked(req.AnthropicKey),
	})
	if err != nil {
		serverError(w, r, "save ai settings", err)
		return
	}
	writeJSON(w, http.StatusOK, newAISettingsView(s))
}

// IssueAPIKey generates a personal API key. The plaintext is returned once.
func (h *Settings) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := models.IssueAPIKey(r.Context(), h.DB, coachID(r))
	if err != nil {
		serverError(w, r, "issue api key", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"api_key": key})
}

// RevokeAPIKey removes the personal API key.
func (h *Settings) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := models.RevokeAPIKey(r.Context(), h.DB, coachID(r)); err != nil {
		serverError(w, r, "revoke api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func unlessMasked(v *string) *string {
	if v != nil && strings.Contains(*v, "••••") {
		return nil
	}
	return v
}
