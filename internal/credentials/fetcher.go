package credentials

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNoAPIKey is returned when a source holds no upstream API key.
var ErrNoAPIKey = errors.New("no upstream API key configured")

// KeyFetcher defines the interface for retrieving the upstream API key
type KeyFetcher interface {
	GetAPIKey() (string, error)
	// RefreshAPIKey drops any cached key so the next GetAPIKey reads the source.
	RefreshAPIKey() error
}

// KeyStore extends KeyFetcher with the ability to replace the stored key
type KeyStore interface {
	KeyFetcher
	SetAPIKey(apiKey string) error
}

const (
	SourceEnv      = "env"
	SourceFile     = "file"
	SourceKeychain = "keychain"
)

// Options selects and configures a key source.
type Options struct {
	Source string
	// Path is the credentials file for SourceFile; empty means DefaultCredsPath.
	Path string
	// Service is the keychain service name for SourceKeychain.
	Service string
	Logger  zerolog.Logger
}

// New builds the key fetcher named by opts.Source.
func New(opts Options) (KeyFetcher, error) {
	switch opts.Source {
	case "", SourceEnv:
		return NewEnvKeyFetcher(), nil
	case SourceFile:
		path := opts.Path
		if path == "" {
			path = DefaultCredsPath()
		}
		if path == "" {
			return nil, fmt.Errorf("could not determine credentials file path")
		}
		return NewFSKeyStore(path), nil
	case SourceKeychain:
		return NewKeychainKeyStoreWithLogger(opts.Service, opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown credentials source %q (want env, file or keychain)", opts.Source)
	}
}
