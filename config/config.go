package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	VST        VSTConfig        `yaml:"vst"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EndpointConfig selects and addresses the inference endpoint.
type EndpointConfig struct {
	// Provider is "openai" (any OpenAI-compatible chat server) or "anthropic".
	Provider string `yaml:"provider"`
	// URL is the base URL for self-hosted OpenAI-compatible servers.
	URL    string `yaml:"url"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// DispatcherConfig tunes the request queue.
type DispatcherConfig struct {
	QueueSize      int           `yaml:"queue_size"`
	RequestTimeout time.Duration `yaml:"-"`

	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// BridgeConfig tunes the command channel.
type BridgeConfig struct {
	Buffer         int           `yaml:"buffer"`
	CommandTimeout time.Duration `yaml:"-"`

	CommandTimeoutRaw string `yaml:"command_timeout"`
}

// VSTConfig addresses the video storage toolkit.
type VSTConfig struct {
	URL string `yaml:"url"`
}

// MetadataConfig selects the result sink.
type MetadataConfig struct {
	// DBPath enables the SQLite sink when non-empty.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a configuration file, expands ${VAR} references against the
// environment and parses duration strings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes; see Load.
func Parse(data []byte) (*Config, error) {
	expanded := envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})

	cfg := &Config{}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	var err error
	if c.Dispatcher.RequestTimeout, err = parseDuration(c.Dispatcher.RequestTimeoutRaw, 60*time.Second); err != nil {
		return fmt.Errorf("dispatcher.request_timeout: %w", err)
	}
	if c.Bridge.CommandTimeout, err = parseDuration(c.Bridge.CommandTimeoutRaw, 10*time.Second); err != nil {
		return fmt.Errorf("bridge.command_timeout: %w", err)
	}
	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = 64
	}
	if c.Bridge.Buffer <= 0 {
		c.Bridge.Buffer = 16
	}
	if c.Endpoint.Provider == "" {
		c.Endpoint.Provider = "openai"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
