// Package config loads the proxy configuration from defaults, an optional
// TOML file and REASONING_PROXY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dvcrn/reasoning-proxy/internal/credentials"
	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

const envPrefix = "REASONING_PROXY"

type Config struct {
	Server      ServerConfig
	Upstream    UpstreamConfig
	Credentials CredentialsConfig
	Admin       AdminConfig
	Proxy       ProxyConfig
	Log         LogConfig
	Models      ModelsConfig
}

type ServerConfig struct {
	Listen string
}

type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
	// Referer and Title are sent as HTTP-Referer and X-Title.
	Referer string
	Title   string
}

type CredentialsConfig struct {
	// Source is one of env, file or keychain.
	Source          string
	Path            string
	KeychainService string
}

type AdminConfig struct {
	APIKey string
}

// ProxyConfig guards the public endpoints. An empty APIKey leaves them open.
type ProxyConfig struct {
	APIKey string
}

type LogConfig struct {
	Level  string
	Format string
}

type ModelsConfig struct {
	// Extra upstream model ids offered in addition to the built-in catalog.
	Extra []string
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		Upstream: UpstreamConfig{
			BaseURL: upstream.DefaultBaseURL,
			Timeout: upstream.DefaultTimeout,
			Referer: upstream.DefaultReferer,
			Title:   upstream.DefaultTitle,
		},
		Credentials: CredentialsConfig{
			Source:          credentials.SourceEnv,
			KeychainService: credentials.DefaultKeychainService,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

func setViperDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.listen", d.Server.Listen)

	v.SetDefault("upstream.base_url", d.Upstream.BaseURL)
	v.SetDefault("upstream.timeout", d.Upstream.Timeout)
	v.SetDefault("upstream.referer", d.Upstream.Referer)
	v.SetDefault("upstream.title", d.Upstream.Title)

	v.SetDefault("credentials.source", d.Credentials.Source)
	v.SetDefault("credentials.path", d.Credentials.Path)
	v.SetDefault("credentials.keychain_service", d.Credentials.KeychainService)

	v.SetDefault("admin.api_key", d.Admin.APIKey)
	v.SetDefault("proxy.api_key", d.Proxy.APIKey)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("models.extra", d.Models.Extra)
}

// DefaultDir is the directory searched for config.toml when no explicit
// path is given.
func DefaultDir() string {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, "reasoning-proxy")
}

// NewViper creates a configured *viper.Viper.
//
// Precedence (highest to lowest): bound CLI flags, environment variables
// (REASONING_PROXY_UPSTREAM_BASE_URL, ...), the config file, defaults.
// An explicit path must exist; the default location may be absent.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		if dir := DefaultDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The unprefixed names are accepted for compatibility with existing deployments.
	_ = v.BindEnv("admin.api_key", envPrefix+"_ADMIN_API_KEY", "ADMIN_API_KEY")
	_ = v.BindEnv("upstream.base_url", envPrefix+"_UPSTREAM_BASE_URL", "OPENROUTER_BASE_URL")

	return v, nil
}

// FromViper reads a Config out of v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Listen: v.GetString("server.listen")},
		Upstream: UpstreamConfig{
			BaseURL: v.GetString("upstream.base_url"),
			Timeout: v.GetDuration("upstream.timeout"),
			Referer: v.GetString("upstream.referer"),
			Title:   v.GetString("upstream.title"),
		},
		Credentials: CredentialsConfig{
			Source:          v.GetString("credentials.source"),
			Path:            v.GetString("credentials.path"),
			KeychainService: v.GetString("credentials.keychain_service"),
		},
		Admin: AdminConfig{APIKey: v.GetString("admin.api_key")},
		Proxy: ProxyConfig{APIKey: v.GetString("proxy.api_key")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Models: ModelsConfig{Extra: v.GetStringSlice("models.extra")},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is NewViper followed by FromViper.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream.base_url %q", c.Upstream.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url must be http or https, got %q", u.Scheme)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	switch c.Credentials.Source {
	case credentials.SourceEnv, credentials.SourceFile, credentials.SourceKeychain:
	default:
		return fmt.Errorf("unknown credentials.source %q", c.Credentials.Source)
	}
	return nil
}
