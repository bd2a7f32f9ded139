package models

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const secretKeySetting = "_internal.secret_key"

// encPrefix marks an encrypted column value.
const encPrefix = "enc:"

var (
	secretMu  sync.RWMutex
	secretRaw string
)

// SetSecretKey installs the key used to encrypt provider API keys at rest.
func SetSecretKey(key string) {
	secretMu.Lock()
	secretRaw = key
	secretMu.Unlock()
}

// GetOrCreateSecretKey ensures a secret key exists for encrypting provider
// credentials. Resolution: configured value → app_settings row → auto-generate.
// The key is stored in plaintext in app_settings (it IS the encryption key) and
// installed with SetSecretKey before returning.
func GetOrCreateSecretKey(ctx context.Context, db DBTX, configured string) (key, source string, err error) {
	// A configured key is persisted so it survives removal from config.
	if configured != "" {
		if err := putAppSetting(ctx, db, secretKeySetting, configured); err != nil {
			return "", "", err
		}
		SetSecretKey(configured)
		return configured, "config", nil
	}

	key, err = getAppSetting(ctx, db, secretKeySetting)
	if err == nil && key != "" {
		SetSecretKey(key)
		return key, "database", nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("models: generate secret key: %w", err)
	}
	key = base64.StdEncoding.EncodeToString(buf)

	if err := putAppSetting(ctx, db, secretKeySetting, key); err != nil {
		return "", "", err
	}
	SetSecretKey(key)
	return key, "generated", nil
}

func getAppSetting(ctx context.Context, db DBTX, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("models: get setting %q: %w", key, err)
	}
	return value, nil
}

func putAppSetting(ctx context.Context, db DBTX, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("models: set setting %q: %w", key, err)
	}
	return nil
}

func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "••••••••"
	}
	return value[:4] + "••••" + value[len(value)-4:]
}

// --- Encryption helpers ---

// secretKey returns the 32-byte encryption key derived from the installed
// secret using HKDF (RFC 5869). Returns nil if no secret is installed.
func secretKey() []byte {
	secretMu.RLock()
	key := secretRaw
	secretMu.RUnlock()
	if key == "" {
		return nil
	}
	h := hkdf.New(sha256.New, []byte(key), []byte("helix-credentials-v1"), []byte("aes-256-gcm"))
	derived := make([]byte, 32)
	if _, err := io.ReadFull(h, derived); err != nil {
		return nil
	}
	return derived
}

// sealSecret encrypts a credential for storage. The empty string stays empty.
func sealSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	enc, err := encryptValue(plaintext)
	if err != nil {
		return "", err
	}
	return encPrefix + enc, nil
}

// openSecret reverses sealSecret. Values without the prefix are returned as is.
func openSecret(stored string) (string, error) {
	if !strings.HasPrefix(stored, encPrefix) {
		return stored, nil
	}
	return decryptValue(stored[len(encPrefix):])
}

func encryptValue(plaintext string) (string, error) {
	key := secretKey()
	if key == nil {
		return "", errors.New("models: secret key not set, cannot encrypt credentials")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decryptValue(encoded string) (string, error) {
	key := secretKey()
	if key == nil {
		return "", errors.New("models: secret key not set, cannot decrypt credentials")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
