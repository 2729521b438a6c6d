package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TEAMCITY_URL",
		"TEAMCITY_ACCESS_TOKEN",
		"TEAMCITY_ACCESS_TOKEN_FILE",
		"REDPANDA_BROKERS",
		"RELKIT_EVENTS_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.TeamCityURL != DefaultTeamCityURL {
			t.Errorf("TeamCityURL = %q, want %q", cfg.TeamCityURL, DefaultTeamCityURL)
		}
		if cfg.EventsTopic != DefaultEventsTopic {
			t.Errorf("EventsTopic = %q, want %q", cfg.EventsTopic, DefaultEventsTopic)
		}
		if err := cfg.RequireToken(); !errors.Is(err, ErrMissingToken) {
			t.Errorf("RequireToken() = %v, want ErrMissingToken", err)
		}
	})

	t.Run("token and brokers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEAMCITY_URL", "https://ci.example.com/")
		t.Setenv("TEAMCITY_ACCESS_TOKEN", " secret \n")
		t.Setenv("REDPANDA_BROKERS", "localhost:19092, other:9092,")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.TeamCityURL != "https://ci.example.com" {
			t.Errorf("TeamCityURL = %q, want trailing slash trimmed", cfg.TeamCityURL)
		}
		if cfg.AccessToken != "secret" {
			t.Errorf("AccessToken = %q, want %q", cfg.AccessToken, "secret")
		}
		if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "other:9092" {
			t.Errorf("Brokers = %v, want [localhost:19092 other:9092]", cfg.Brokers)
		}
	})

	t.Run("token file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("TEAMCITY_ACCESS_TOKEN_FILE", path)

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.AccessToken != "from-file" {
			t.Errorf("AccessToken = %q, want %q", cfg.AccessToken, "from-file")
		}
	})

	t.Run("missing token file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEAMCITY_ACCESS_TOKEN_FILE", filepath.Join(t.TempDir(), "absent"))

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for missing token file, got nil")
		}
	})
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "relkit.yaml")
	content := "teamcity_url: https://yaml.example.com\nbrokers:\n  - broker-a:9092\nevents_topic: from_yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELKIT_EVENTS_TOPIC", "from_env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.TeamCityURL != "https://yaml.example.com" {
		t.Errorf("TeamCityURL = %q", cfg.TeamCityURL)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "broker-a:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.EventsTopic != "from_env" {
		t.Errorf("EventsTopic = %q, want env override", cfg.EventsTopic)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.TeamCityURL != DefaultTeamCityURL {
		t.Errorf("TeamCityURL = %q, want default", cfg.TeamCityURL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("brokers: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected parse error, got nil")
	}
}
