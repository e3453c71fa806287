package credentials

import (
	"fmt"
	"os"
)

// DefaultEnvVar holds the upstream API key for the env source.
const DefaultEnvVar = "OPENROUTER_API_KEY"

// EnvKeyFetcher retrieves the API key from an environment variable
type EnvKeyFetcher struct {
	Var string
}

// NewEnvKeyFetcher creates a fetcher reading OPENROUTER_API_KEY
func NewEnvKeyFetcher() *EnvKeyFetcher {
	return &EnvKeyFetcher{Var: DefaultEnvVar}
}

func (e *EnvKeyFetcher) GetAPIKey() (string, error) {
	key := os.Getenv(e.Var)
	if key == "" {
		return "", fmt.Errorf("%s is not set: %w", e.Var, ErrNoAPIKey)
	}
	return key, nil
}

// RefreshAPIKey is a no-op for environment credentials
func (e *EnvKeyFetcher) RefreshAPIKey() error {
	return nil
}
