package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name under which completer credentials
	// are stored in the OS keychain.
	KeyringService = "docling-graph"
)

// KeyringManager handles secure completer credential storage in the OS
// keychain (macOS Keychain Access, Windows Credential Manager, Linux Secret
// Service via libsecret).
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager.
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

func apiKeyItem(provider string) string {
	if provider == "" {
		provider = "default"
	}
	return provider + "-api-key"
}

// SaveAPIKey stores a provider's API key securely in the OS keychain.
func (km *KeyringManager) SaveAPIKey(provider, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if err := keyring.Set(KeyringService, apiKeyItem(provider), apiKey); err != nil {
		km.logger.Error("failed to save API key to keychain", "provider", provider, "error", err)
		return fmt.Errorf("save to OS keychain: %w", err)
	}
	km.logger.Info("api key saved to keychain", "provider", provider)
	return nil
}

// GetAPIKey retrieves a provider's API key from the OS keychain. A missing
// entry is not an error: it just means the key isn't set there yet.
func (km *KeyringManager) GetAPIKey(provider string) (string, error) {
	apiKey, err := keyring.Get(KeyringService, apiKeyItem(provider))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get API key from keychain", "provider", provider, "error", err)
		return "", fmt.Errorf("read from OS keychain: %w", err)
	}
	km.logger.Debug("api key retrieved from keychain", "provider", provider)
	return apiKey, nil
}

// DeleteAPIKey removes a provider's API key from the OS keychain.
func (km *KeyringManager) DeleteAPIKey(provider string) error {
	err := keyring.Delete(KeyringService, apiKeyItem(provider))
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete API key from keychain", "provider", provider, "error", err)
		return fmt.Errorf("delete from OS keychain: %w", err)
	}
	km.logger.Info("api key deleted from keychain", "provider", provider)
	return nil
}

// IsAvailable reports whether the OS keychain backend is reachable. It
// returns false on headless systems (CI) where no keychain is available.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "availability-probe")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}
	return true
}

// KeySourceInfo describes where an API key was ultimately resolved from.
type KeySourceInfo struct {
	Source      string // "keychain", "config", "env", "env_file", "none"
	Secure      bool
	Recommended string
}

// GetAPIKeySource determines where the configured completer API key came
// from, for diagnostics (`docling-graph config show`).
func (km *KeyringManager) GetAPIKeySource(cfg *Config) KeySourceInfo {
	if os.Getenv("COMPLETER_API_KEY") != "" {
		return KeySourceInfo{Source: "env", Secure: true, Recommended: "using environment variable"}
	}
	if keychainKey, _ := km.GetAPIKey(cfg.Completer.Provider); keychainKey != "" {
		return KeySourceInfo{Source: "keychain", Secure: true, Recommended: "stored in OS keychain"}
	}
	if cfg.Completer.APIKey != "" {
		return KeySourceInfo{Source: "config", Secure: false, Recommended: "plaintext in config file; consider the OS keychain"}
	}
	if _, err := os.Stat(".env"); err == nil {
		return KeySourceInfo{Source: "env_file", Secure: false, Recommended: "using .env file"}
	}
	return KeySourceInfo{Source: "none", Secure: false, Recommended: "no completer API key configured"}
}

// MaskAPIKey masks an API key for display, keeping the first 7 and last 4
// characters: "sk-proj...c123".
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}
