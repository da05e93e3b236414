package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
backend:
  base_url: "https://api.example.com"
  timeout_seconds: 20

source:
  url: "ws://127.0.0.1:9400/feed"

auth:
  token_path: "/var/lib/rider-agent/token"

api:
  port: 8090
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Fatalf("base_url: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSeconds != 20 {
		t.Fatalf("timeout_seconds: %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Source.URL != "ws://127.0.0.1:9400/feed" {
		t.Fatalf("source url: %q", cfg.Source.URL)
	}
	if cfg.Auth.TokenPath != "/var/lib/rider-agent/token" {
		t.Fatalf("token_path: %q", cfg.Auth.TokenPath)
	}
	if cfg.API.Port != 8090 {
		t.Fatalf("api port: %d", cfg.API.Port)
	}
	if cfg.HasJournal || cfg.HasRabbitMQ {
		t.Fatal("optional sections must be off when absent")
	}
}

func TestLoadDefaultsTimeout(t *testing.T) {
	body := strings.Replace(validConfig, "  timeout_seconds: 20\n", "", 1)
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.TimeoutSeconds != 15 {
		t.Fatalf("expected default timeout 15, got %d", cfg.Backend.TimeoutSeconds)
	}
}

func TestLoadOptionalSections(t *testing.T) {
	body := validConfig + `
journal:
  path: "/var/lib/rider-agent/journal.db"

rabbitmq:
  host: "localhost"
  port: 5672
  user: "guest"
  password: "guest"
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.HasJournal || cfg.Journal.Path != "/var/lib/rider-agent/journal.db" {
		t.Fatalf("journal section not parsed: %+v", cfg.Journal)
	}
	if !cfg.HasRabbitMQ || cfg.RabbitMQ.Host != "localhost" || cfg.RabbitMQ.Port != 5672 {
		t.Fatalf("rabbitmq section not parsed: %+v", cfg.RabbitMQ)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown section", validConfig + "\nweird:\n  x: 1\n", "unknown section"},
		{"unknown key", strings.Replace(validConfig, "base_url", "base_uri", 1), "unknown field"},
		{"duplicate key", validConfig + "\nbackend:\n  base_url: \"again\"\n", "duplicate key"},
		{"key outside section", "base_url: x\n" + validConfig, "outside of any section"},
		{"missing required", strings.Replace(validConfig, "  token_path: \"/var/lib/rider-agent/token\"\n", "", 1), "missing required keys in [auth]"},
		{"non-int port", strings.Replace(validConfig, "port: 8090", "port: eight", 1), "must be int"},
		{"incomplete rabbitmq", validConfig + "\nrabbitmq:\n  host: \"localhost\"\n", "missing required keys in [rabbitmq]"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("expected error containing %q, got %v", c.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
