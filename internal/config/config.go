package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Game     GameConfig     `yaml:"game"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Demos    DemosConfig    `yaml:"demos"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
}

// GameConfig holds the monitored game server settings
type GameConfig struct {
	Address        string   `yaml:"address"`      // host:port for A2S queries
	RconAddress    string   `yaml:"rcon_address"` // host:port for RCON, defaults to Address
	RconPassword   string   `yaml:"rcon_password"`
	PollInterval   Duration `yaml:"poll_interval"`
	StatusInterval Duration `yaml:"status_interval"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret     string   `yaml:"jwt_secret"`
	TokenDuration Duration `yaml:"token_duration"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "5m", as well as plain integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		*d = Duration(asInt)
		return nil
	}

	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", asString, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DemosConfig holds the external demo index settings
type DemosConfig struct {
	IndexURL string `yaml:"index_url"`
	PageSize int    `yaml:"page_size"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Game.RconAddress == "" {
		cfg.Game.RconAddress = cfg.Game.Address
	}
	if cfg.Game.PollInterval == 0 {
		cfg.Game.PollInterval = Duration(60 * time.Second)
	}
	if cfg.Game.StatusInterval == 0 {
		cfg.Game.StatusInterval = Duration(5 * time.Minute)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/cs2watch/cs2watch.db"
	}
	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = Duration(24 * time.Hour)
	}
	if cfg.Demos.PageSize == 0 {
		cfg.Demos.PageSize = 5
	}

	if cfg.Game.Address == "" {
		return nil, fmt.Errorf("game.address is required")
	}

	return &cfg, nil
}
