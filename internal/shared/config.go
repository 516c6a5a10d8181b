package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Frontend    FrontendConfig    `toml:"frontend"`
	Store       StoreConfig       `toml:"store"`
	Server      ServerConfig      `toml:"server"`
	Cache       CacheConfig       `toml:"cache"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether both client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// FrontendConfig describes the public origin of the web client.
type FrontendConfig struct {
	URL string `toml:"url"`
}

// StoreConfig selects the session store backend.
//
// Driver is one of "redis", "sqlite" or "memory". An empty driver means redis when RedisURL is set and memory otherwise.
type StoreConfig struct {
	Driver     string `toml:"driver"`
	RedisURL   string `toml:"redis_url"`
	SQLitePath string `toml:"sqlite_path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                   string  `toml:"host"`
	Port                   int     `toml:"port"`
	ShutdownTimeoutSeconds int     `toml:"shutdown_timeout_seconds"`
	ImageRateLimit         float64 `toml:"image_rate_limit"` // image proxy requests per second, 0 disables
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeout returns the graceful shutdown budget, defaulting to 10 seconds.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	if s.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// CacheConfig tunes the search response cache.
type CacheConfig struct {
	SearchTTLSeconds int `toml:"search_ttl_seconds"`
	SearchCapacity   int `toml:"search_capacity"`
}

// SearchTTL returns the search cache entry lifetime, defaulting to 30 seconds.
func (c CacheConfig) SearchTTL() time.Duration {
	if c.SearchTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SearchTTLSeconds) * time.Second
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads the given dotenv files in order, skipping missing ones.
//
// Variables already present in the environment are never overwritten, so earlier files win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with environment variables, using lookup to read them.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"FRONTEND_URL":          &c.Frontend.URL,
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT_URI":  &c.Credentials.Spotify.RedirectURI,
		"REDIS_URL":             &c.Store.RedisURL,
		"SESSION_STORE":         &c.Store.Driver,
		"LOG_LEVEL":             &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return c.Validate()
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Frontend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: frontend url %q", ErrInvalidConfig, c.Frontend.URL)
	}

	switch c.Store.Driver {
	case "", "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidConfig, c.Server.Port)
	}

	return nil
}
