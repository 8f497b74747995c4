package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Export   ExportConfig   `toml:"export"`
}

// APIConfig describes the StreamTube backend and how the client talks to it.
type APIConfig struct {
	BaseURL        string        `toml:"base_url"`
	RefreshPath    string        `toml:"refresh_path"`
	AuthPaths      []string      `toml:"auth_paths"`
	Timeout        time.Duration `toml:"timeout"`
	RefreshTimeout time.Duration `toml:"refresh_timeout"`
	ReauthDelay    time.Duration `toml:"reauth_delay"`
	SignInURL      string        `toml:"sign_in_url"`
	OpenBrowser    bool          `toml:"open_browser"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local development API and the sign-in callback listener.
type ServerConfig struct {
	Host         string        `toml:"host"`
	Port         int           `toml:"port"`
	JWTSecret    string        `toml:"jwt_secret"`
	AccessTTL    time.Duration `toml:"access_ttl"`
	RefreshTTL   time.Duration `toml:"refresh_ttl"`
	CallbackPort int           `toml:"callback_port"`
}

// ExportConfig holds bulk export defaults.
type ExportConfig struct {
	Format    string  `toml:"format"`
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// Addr returns the host:port the development API listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports configuration that would leave the client unusable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.API.RefreshPath == "" {
		return fmt.Errorf("%w: api.refresh_path is required", ErrInvalidConfig)
	}
	if c.API.ReauthDelay < 0 || c.API.Timeout < 0 || c.API.RefreshTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
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
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
