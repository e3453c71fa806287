//go:build js && wasm

package credentials

import (
	"fmt"
	"strings"

	"github.com/syumai/workers/cloudflare/kv"
)

const (
	// KVNamespace is the binding name configured in wrangler.toml.
	KVNamespace = "reasoning_proxy_kv"
	kvAPIKey    = "openrouter_api_key"
)

// CloudflareKVStore keeps the API key in Cloudflare KV
type CloudflareKVStore struct {
	kvStore *kv.Namespace
}

// NewCloudflareKVStore creates a new Cloudflare KV-backed key store
func NewCloudflareKVStore() (*CloudflareKVStore, error) {
	kvStore, err := kv.NewNamespace(KVNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKVStore{kvStore: kvStore}, nil
}

func (c *CloudflareKVStore) GetAPIKey() (string, error) {
	key, err := c.kvStore.GetString(kvAPIKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get API key from KV: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("no API key found in KV: %w", ErrNoAPIKey)
	}
	return key, nil
}

// RefreshAPIKey is a no-op; KV is read on every call.
func (c *CloudflareKVStore) RefreshAPIKey() error {
	return nil
}

func (c *CloudflareKVStore) SetAPIKey(apiKey string) error {
	if err := c.kvStore.PutString(kvAPIKey, apiKey, nil); err != nil {
		return fmt.Errorf("failed to store API key in KV: %w", err)
	}
	return nil
}
