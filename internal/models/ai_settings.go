package models

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in coach_ai_settings.preferred_provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// APIKeyPrefix prefixes every personal API key handed to a coach.
const APIKeyPrefix = "hx_"

// AISettings holds a coach's language-model preferences and decrypted
// provider credentials.
type AISettings struct {
	UserID         int64
	Provider       string
	Model          string
	OpenAIKey      string
	AnthropicKey   string
	HasPersonalKey bool
	UpdatedAt      time.Time
}

// APIKey returns the credential for the preferred provider.
func (s *AISettings) APIKey() string {
	switch s.Provider {
	case ProviderAnthropic:
		return s.AnthropicKey
	default:
		return s.OpenAIKey
	}
}

// MaskedOpenAIKey returns the OpenAI key with its middle hidden.
func (s *AISettings) MaskedOpenAIKey() string { return maskValue(s.OpenAIKey) }

// MaskedAnthropicKey returns the Anthropic key with its middle hidden.
func (s *AISettings) MaskedAnthropicKey() string { return maskValue(s.AnthropicKey) }

// AISettingsParams describes an update. Nil key pointers leave the stored
// credential untouched; a pointer to "" clears it.
type AISettingsParams struct {
	Provider     string
	Model        string
	OpenAIKey    *string
	AnthropicKey *string
}

// GetAISettings returns the coach's AI settings, or ErrNotFound if the coach
// has never saved any.
func GetAISettings(ctx context.Context, db DBTX, userID int64) (*AISettings, error) {
	s := &AISettings{UserID: userID}
	var openAI, anthropic, keyHash sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT preferred_provider, preferred_model, openai_api_key, anthropic_api_key, api_key_hash, updated_at
		 FROM coach_ai_settings WHERE user_id = ?`, userID,
	).Scan(&s.Provider, &s.Model, &openAI, &anthropic, &keyHash, &s.UpdatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get ai settings for user %d: %w", userID, err)
	}

	if s.OpenAIKey, err = openSecret(openAI.String); err != nil {
		return nil, fmt.Errorf("models: decrypt openai key for user %d: %w", userID, err)
	}
	if s.AnthropicKey, err = openSecret(anthropic.String); err != nil {
		return nil, fmt.Errorf("models: decrypt anthropic key for user %d: %w", userID, err)
	}
	s.HasPersonalKey = keyHash.Valid
	return s, nil
}

// SaveAISettings upserts the coach's AI settings. Credentials are encrypted
// before they reach the database.
func SaveAISettings(ctx context.Context, db DBTX, userID int64, p AISettingsParams) (*AISettings, error) {
	provider := strings.ToLower(strings.TrimSpace(p.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	if provider != ProviderOpenAI && provider != ProviderAnthropic {
		return nil, fmt.Errorf("models: unknown provider %q", p.Provider)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO coach_ai_settings (user_id, preferred_provider, preferred_model) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   preferred_provider = excluded.preferred_provider,
		   preferred_model = excluded.preferred_model,
		   updated_at = CURRENT_TIMESTAMP`,
		userID, provider, strings.TrimSpace(p.Model),
	); err != nil {
		return nil, fmt.Errorf("models: save ai settings for user %d: %w", userID, err)
	}

	if err := storeCredential(ctx, db, userID, "openai_api_key", p.OpenAIKey); err != nil {
		return nil, err
	}
	if err := storeCredential(ctx, db, userID, "anthropic_api_key", p.AnthropicKey); err != nil {
		return nil, err
	}

	return GetAISettings(ctx, db, userID)
}

func storeCredential(ctx context.Context, db DBTX, userID int64, column string, value *string) error {
	if value == nil {
		return nil
	}
	sealed, err := sealSecret(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("models: encrypt %s for user %d: %w", column, userID, err)
	}
	// column is one of two fixed identifiers, never user input.
	if _, err := db.ExecContext(ctx,
		`UPDATE coach_ai_settings SET `+column+` = ? WHERE user_id = ?`,
		nullString(sealed), userID,
	); err != nil {
		return fmt.Errorf("models: store %s for user %d: %w", column, userID, err)
	}
	return nil
}

// GenerateAPIKey returns a fresh personal API key: the prefix followed by
// 32 random bytes in hex.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("models: generate api key: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(buf), nil
}

// HashAPIKey returns the hex SHA-256 digest stored in place of the key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IssueAPIKey generates a personal API key for the coach, stores its hash and
// returns the plaintext. The plaintext is never persisted; issuing again
// replaces the previous key.
func IssueAPIKey(ctx context.Context, db DBTX, userID int64) (string, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO coach_ai_settings (user_id, api_key_hash) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET api_key_hash = excluded.api_key_hash, updated_at = CURRENT_TIMESTAMP`,
		userID, HashAPIKey(key),
	); err != nil {
		return "", fmt.Errorf("models: issue api key for user %d: %w", userID, err)
	}
	return key, nil
}

// RevokeAPIKey removes the coach's personal API key.
func RevokeAPIKey(ctx context.Context, db DBTX, userID int64) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE coach_ai_settings SET api_key_hash = NULL, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("models: revoke api key for user %d: %w", userID, err)
	}
	return nil
}

// GetUserByAPIKey resolves a personal API key to its coach, or ErrNotFound.
func GetUserByAPIKey(ctx context.Context, db DBTX, key string) (*User, error) {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return nil, ErrNotFound
	}
	var userID int64
	err := db.QueryRowContext(ctx,
		`SELECT user_id FROM coach_ai_settings WHERE api_key_hash = ?`, HashAPIKey(key),
	).Scan(&userID)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: lookup api key: %w", err)
	}
	return GetUserByID(ctx, db, userID)
}
