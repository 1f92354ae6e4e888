package reporter

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the reporter agent configuration
type Config struct {
	ServerURL    string        `yaml:"server_url"`
	SerialNumber string        `yaml:"serial_number"`
	Interval     time.Duration `yaml:"interval"`
	LogLevel     string        `yaml:"log_level"`

	Client ClientConfig `yaml:"client"`
}

// ClientConfig holds configuration for the HTTP client talking to the service
type ClientConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxPayloadSize int64         `yaml:"max_payload_size"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Interval:  time.Minute,
		LogLevel:  "info",
		Client:    DefaultClientConfig(),
	}
}

// DefaultClientConfig returns a default configuration for the client
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:        10 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		MaxPayloadSize: 4 * 1024,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path yields the
// defaults alone. The result is not validated so flags can still override it.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.SerialNumber) == "" {
		errors = append(errors, "serial_number is required")
	}
	if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "server_url must be an absolute URL")
	}
	if c.Interval < time.Second {
		errors = append(errors, "interval must be at least 1s")
	}
	if c.Client.Timeout <= 0 {
		errors = append(errors, "client.timeout must be positive")
	}
	if c.Client.RetryAttempts < 0 {
		errors = append(errors, "client.retry_attempts must not be negative")
	}
	if c.Client.MaxPayloadSize <= 0 {
		errors = append(errors, "client.max_payload_size must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errors, "; "))
	}
	return nil
}
