// Package config provides configuration management for relkit.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTeamCityURL is the TeamCity server used when none is configured.
	DefaultTeamCityURL = "https://dpcbuild.deltares.nl"

	// DefaultEventsTopic is the topic release events are published to.
	DefaultEventsTopic = "release_events"
)

// ErrMissingToken is returned when a TeamCity command runs without an access token.
var ErrMissingToken = errors.New("TeamCity access token is required")

// Config holds the application configuration.
type Config struct {
	// TeamCityURL is the root URL of the TeamCity server.
	TeamCityURL string `yaml:"teamcity_url"`

	// AccessToken is the bearer token for the TeamCity REST API.
	AccessToken string `yaml:"-"`

	// AccessTokenFile points at a file holding the access token.
	AccessTokenFile string `yaml:"access_token_file"`

	// Brokers lists Redpanda/Kafka seed brokers for release events.
	// Events stay in-process when empty.
	Brokers []string `yaml:"brokers"`

	// EventsTopic is the topic release events are published to.
	EventsTopic string `yaml:"events_topic"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := defaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads an optional YAML file and overlays environment variables on top.
// An empty path or a missing file yields the environment-only configuration.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.TeamCityURL == "" {
		cfg.TeamCityURL = DefaultTeamCityURL
	}
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = DefaultEventsTopic
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		TeamCityURL: DefaultTeamCityURL,
		EventsTopic: DefaultEventsTopic,
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TEAMCITY_URL"); v != "" {
		c.TeamCityURL = v
	}
	c.TeamCityURL = strings.TrimRight(c.TeamCityURL, "/")

	if v := os.Getenv("TEAMCITY_ACCESS_TOKEN_FILE"); v != "" {
		c.AccessTokenFile = v
	}
	if c.AccessTokenFile != "" {
		if err := c.ReadTokenFile(c.AccessTokenFile); err != nil {
			return err
		}
	}
	if v := os.Getenv("TEAMCITY_ACCESS_TOKEN"); v != "" {
		c.AccessToken = strings.TrimSpace(v)
	}

	if v := os.Getenv("REDPANDA_BROKERS"); v != "" {
		c.Brokers = splitList(v)
	}
	if v := os.Getenv("RELKIT_EVENTS_TOPIC"); v != "" {
		c.EventsTopic = v
	}
	return nil
}

// ReadTokenFile loads the access token from a file, trimming surrounding whitespace.
func (c *Config) ReadTokenFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read access token file: %w", err)
	}
	c.AccessTokenFile = path
	c.AccessToken = strings.TrimSpace(string(data))
	return nil
}

// RequireToken returns ErrMissingToken when no access token is configured.
func (c *Config) RequireToken() error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: set TEAMCITY_ACCESS_TOKEN or pass --teamcity-access-token", ErrMissingToken)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
