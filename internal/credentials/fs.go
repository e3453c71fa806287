package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type fsAuth struct {
	APIKey string `json:"api_key"`
}

// FSKeyStore keeps the API key in a JSON file: {"api_key": "..."}
type FSKeyStore struct {
	Path string
}

func NewFSKeyStore(path string) *FSKeyStore {
	return &FSKeyStore{Path: path}
}

func (f *FSKeyStore) GetAPIKey() (string, error) {
	if !FileExists(f.Path) {
		return "", fmt.Errorf("credentials file %s does not exist: %w", f.Path, ErrNoAPIKey)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	var a fsAuth
	if err := json.Unmarshal(b, &a); err != nil {
		return "", fmt.Errorf("failed to parse credentials file: %w", err)
	}
	key := strings.TrimSpace(a.APIKey)
	if key == "" {
		return "", fmt.Errorf("missing api_key in credentials file: %w", ErrNoAPIKey)
	}
	return key, nil
}

// RefreshAPIKey is a no-op; the file is read on every call.
func (f *FSKeyStore) RefreshAPIKey() error {
	return nil
}

// SetAPIKey writes the key, creating the file and its directory if needed.
func (f *FSKeyStore) SetAPIKey(apiKey string) error {
	if err := EnsureParentDir(f.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(fsAuth{APIKey: apiKey}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
