package chat

import (
	"fmt"
	"strings"
	"sync"
)

// Storage keys shared with the settings table
const (
	KeyAPIKey       = "gemini_api_key"
	KeyPrefixes     = "prompt_prefixes"
	KeyActivePrefix = "active_prefix"
)

// SettingsStore is a persistent key-value store. Writes must be durable by
// the time they return.
type SettingsStore interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// MemoryStore is a SettingsStore kept in memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// GetSetting returns the value for key and whether it was present
func (s *MemoryStore) GetSetting(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// SetSetting stores value under key
func (s *MemoryStore) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// DeleteSetting removes key
func (s *MemoryStore) DeleteSetting(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// CredentialStore keeps the model service API key under a fixed settings key
type CredentialStore struct {
	store SettingsStore
}

// NewCredentialStore creates a credential store backed by store
func NewCredentialStore(store SettingsStore) *CredentialStore {
	return &CredentialStore{store: store}
}

// Get returns the stored credential, or "" when none is stored
func (c *CredentialStore) Get() (string, error) {
	v, ok, err := c.store.GetSetting(KeyAPIKey)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

// Set stores a trimmed credential
func (c *CredentialStore) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return &ValidationError{Field: "credential", Reason: "API key must not be empty"}
	}
	if err := c.store.SetSetting(KeyAPIKey, value); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

// Clear removes the stored credential
func (c *CredentialStore) Clear() error {
	if err := c.store.DeleteSetting(KeyAPIKey); err != nil {
		return fmt.Errorf("failed to clear API key: %w", err)
	}
	return nil
}
