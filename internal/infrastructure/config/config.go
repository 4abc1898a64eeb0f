package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Host      HostConfig      `yaml:"host"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
	EventLog  EventLogConfig  `yaml:"event_log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// HostConfig selects the browser host backend.
type HostConfig struct {
	// Mode is "memory" (standalone, in-process fakes) or "remote"
	// (browser bridge over HTTP).
	Mode          string        `envconfig:"HOST_MODE" default:"memory" yaml:"mode"`
	BridgeAddress string        `envconfig:"HOST_BRIDGE_ADDR" default:"http://localhost:8610" yaml:"bridge_address"`
	BridgeTimeout time.Duration `envconfig:"HOST_BRIDGE_TIMEOUT" default:"10s" yaml:"bridge_timeout"`
}

// SessionConfig holds session lifecycle configuration.
type SessionConfig struct {
	// StorageKey is the well-known key holding the local session map.
	StorageKey string `envconfig:"SESSION_STORAGE_KEY" default:"tabstash.sessions" yaml:"storage_key"`
	// InstanceKey is the storage key holding this instance's id.
	InstanceKey string `envconfig:"SESSION_INSTANCE_KEY" default:"tabstash.instance" yaml:"instance_key"`
	// ParentFolderTitle names the bookmark folder under which session
	// subtrees live.
	ParentFolderTitle string `envconfig:"SESSION_PARENT_FOLDER" default:"Tab Sessions" yaml:"parent_folder_title"`
	// RootFolderID is the bookmark node the parent folder is created under.
	RootFolderID string `envconfig:"SESSION_ROOT_FOLDER_ID" default:"0" yaml:"root_folder_id"`
	// AutoSaveInterval is the idle delay before open named sessions are
	// mirrored.
	AutoSaveInterval time.Duration `envconfig:"SESSION_AUTOSAVE_INTERVAL" default:"30s" yaml:"auto_save_interval"`
	// UIPageURL is the page the restore anchor tab is pointed at.
	UIPageURL string `envconfig:"SESSION_UI_PAGE_URL" default:"tabstash://session" yaml:"ui_page_url"`
}

// CacheConfig holds persistent digest cache configuration.
type CacheConfig struct {
	DigestCapacity  int    `envconfig:"CACHE_DIGEST_CAPACITY" default:"256" yaml:"digest_capacity"`
	DigestNamespace string `envconfig:"CACHE_DIGEST_NAMESPACE" default:"tabstash.digests" yaml:"digest_namespace"`
}

// EventLogConfig holds event log configuration.
type EventLogConfig struct {
	StorageKey    string        `envconfig:"EVENTLOG_STORAGE_KEY" default:"tabstash.events" yaml:"storage_key"`
	MaxEntries    int           `envconfig:"EVENTLOG_MAX_ENTRIES" default:"1000" yaml:"max_entries"`
	MaxAge        time.Duration `envconfig:"EVENTLOG_MAX_AGE" default:"168h" yaml:"max_age"`
	FlushInterval time.Duration `envconfig:"EVENTLOG_FLUSH_INTERVAL" default:"15s" yaml:"flush_interval"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from the environment, then applies YAML
// overrides from path.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns the
// defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8600",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Host: HostConfig{
			Mode:          "memory",
			BridgeAddress: "http://localhost:8610",
			BridgeTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			StorageKey:        "tabstash.sessions",
			InstanceKey:       "tabstash.instance",
			ParentFolderTitle: "Tab Sessions",
			RootFolderID:      "0",
			AutoSaveInterval:  30 * time.Second,
			UIPageURL:         "tabstash://session",
		},
		Cache: CacheConfig{
			DigestCapacity:  256,
			DigestNamespace: "tabstash.digests",
		},
		EventLog: EventLogConfig{
			StorageKey:    "tabstash.events",
			MaxEntries:    1000,
			MaxAge:        168 * time.Hour,
			FlushInterval: 15 * time.Second,
		},
	}
}
