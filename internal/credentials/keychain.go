package credentials

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultKeychainService is the generic-password service the key is stored under.
const DefaultKeychainService = "reasoning-proxy-openrouter"

const keychainAccount = "reasoning-proxy"

// commandRunner runs the macOS security tool and returns its stdout.
type commandRunner func(args ...string) ([]byte, error)

func runSecurity(args ...string) ([]byte, error) {
	return exec.Command("security", args...).Output()
}

// KeychainKeyStore retrieves the API key from the macOS keychain with caching
type KeychainKeyStore struct {
	service     string
	run         commandRunner
	mu          sync.RWMutex
	cachedKey   string
	lastRefresh time.Time
	cacheTTL    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	logger      *zerolog.Logger
}

// NewKeychainKeyStore creates a new keychain-backed key store
func NewKeychainKeyStore(service string) *KeychainKeyStore {
	k := newKeychainKeyStore(service, runSecurity)
	go k.backgroundRefresh(10 * time.Minute)
	return k
}

// NewKeychainKeyStoreWithLogger creates a new keychain-backed key store with logger
func NewKeychainKeyStoreWithLogger(service string, logger zerolog.Logger) *KeychainKeyStore {
	k := newKeychainKeyStore(service, runSecurity)
	k.logger = &logger
	go k.backgroundRefresh(10 * time.Minute)
	return k
}

func newKeychainKeyStore(service string, run commandRunner) *KeychainKeyStore {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainKeyStore{
		service:  service,
		run:      run,
		cacheTTL: 5 * time.Minute, // Cache the key for 5 minutes
		stopCh:   make(chan struct{}),
	}
}

// GetAPIKey returns the cached key or reads it from the keychain
func (k *KeychainKeyStore) GetAPIKey() (string, error) {
	k.mu.RLock()
	if k.cachedKey != "" && time.Since(k.lastRefresh) < k.cacheTTL {
		key := k.cachedKey
		k.mu.RUnlock()
		return key, nil
	}
	k.mu.RUnlock()
	return k.refreshAndGet()
}

// RefreshAPIKey forces a fresh read from the keychain
func (k *KeychainKeyStore) RefreshAPIKey() error {
	_, err := k.refreshAndGet()
	return err
}

// SetAPIKey stores the key in the keychain, replacing any existing entry
func (k *KeychainKeyStore) SetAPIKey(apiKey string) error {
	if _, err := k.run("add-generic-password", "-s", k.service, "-a", keychainAccount, "-w", apiKey, "-U"); err != nil {
		return fmt.Errorf("failed to update keychain: %w", err)
	}
	k.mu.Lock()
	k.cachedKey = apiKey
	k.lastRefresh = time.Now()
	k.mu.Unlock()
	return nil
}

func (k *KeychainKeyStore) refreshAndGet() (string, error) {
	output, err := k.run("find-generic-password", "-s", k.service, "-w")
	if err != nil {
		return "", fmt.Errorf("failed to retrieve password from Keychain: %w", err)
	}
	key := strings.TrimSpace(string(output))
	if key == "" {
		return "", fmt.Errorf("keychain entry %q is empty: %w", k.service, ErrNoAPIKey)
	}
	k.mu.Lock()
	k.cachedKey = key
	k.lastRefresh = time.Now()
	k.mu.Unlock()
	return key, nil
}

func (k *KeychainKeyStore) backgroundRefresh(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := k.RefreshAPIKey()
			if k.logger != nil {
				if err != nil {
					k.logger.Error().Err(err).Msg("Failed to refresh API key from keychain")
				} else {
					k.logger.Debug().Msg("Refreshed API key from keychain")
				}
			}
		case <-k.stopCh:
			return
		}
	}
}

// Close stops the background refresh goroutine
func (k *KeychainKeyStore) Close() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}
