package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
relational:
  host: localhost
  port: 3306
  user: club
  password: secret
  database: club
  tls: disable
  max_connections: 5
  max_idle_connections: 2

content:
  uri: mongodb://content-host:27017
  database: editorial
  collection: docs
  timeout: 3s

cache:
  ttl: 2m

import:
  batch_size: 10
  batch_delay: 250ms
  include_staff: false

webhook:
  listen: ":9090"
  path: /hooks/content
  secret: shh

scheduler:
  enabled: true
  spec: "@every 30m"
  kinds: [person, match]

logging:
  level: debug
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Relational.Host != "localhost" {
		t.Errorf("expected relational host 'localhost', got %s", cfg.Relational.Host)
	}
	if cfg.Relational.MaxIdleConnections != 2 {
		t.Errorf("expected max_idle_connections 2, got %d", cfg.Relational.MaxIdleConnections)
	}
	if cfg.Content.URI != "mongodb://content-host:27017" {
		t.Errorf("expected content uri, got %s", cfg.Content.URI)
	}
	if cfg.Content.Timeout != 3*time.Second {
		t.Errorf("expected content timeout 3s, got %s", cfg.Content.Timeout)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("expected cache ttl 2m, got %s", cfg.Cache.TTL)
	}
	if cfg.Import.BatchSize != 10 {
		t.Errorf("expected batch_size 10, got %d", cfg.Import.BatchSize)
	}
	if cfg.Import.BatchDelay != 250*time.Millisecond {
		t.Errorf("expected batch_delay 250ms, got %s", cfg.Import.BatchDelay)
	}
	if cfg.Import.IncludeStaff {
		t.Errorf("expected include_staff false")
	}
	if cfg.Webhook.Path != "/hooks/content" {
		t.Errorf("expected webhook path '/hooks/content', got %s", cfg.Webhook.Path)
	}
	if len(cfg.Scheduler.Kinds) != 2 || cfg.Scheduler.Kinds[1] != "match" {
		t.Errorf("expected scheduler kinds [person match], got %v", cfg.Scheduler.Kinds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level 'debug', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected loaded config to validate, got %v", err)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal.yaml")

	configContent := `
relational:
  host: db
  user: club
  database: club
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Relational.Port != 3306 {
		t.Errorf("expected default port 3306, got %d", cfg.Relational.Port)
	}
	if cfg.Import.BatchSize != 5 {
		t.Errorf("expected default batch_size 5, got %d", cfg.Import.BatchSize)
	}
	if !cfg.Import.IncludeStaff {
		t.Errorf("expected include_staff default true")
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "env-host")
	t.Setenv("TEST_DB_PASS", "env-pass")
	t.Setenv("TEST_MONGO_URI", "mongodb://env-mongo:27017")
	t.Setenv("TEST_WEBHOOK_SECRET", "env-secret")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-env.yaml")

	configContent := `
relational:
  host: ${TEST_DB_HOST}
  user: club
  password: ${TEST_DB_PASS}
  database: club
content:
  uri: ${TEST_MONGO_URI}
webhook:
  secret: $TEST_WEBHOOK_SECRET
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Relational.Host != "env-host" {
		t.Errorf("expected relational host 'env-host', got %s", cfg.Relational.Host)
	}
	if cfg.Relational.Password != "env-pass" {
		t.Errorf("expected relational password 'env-pass', got %s", cfg.Relational.Password)
	}
	if cfg.Content.URI != "mongodb://env-mongo:27017" {
		t.Errorf("expected content uri from env, got %s", cfg.Content.URI)
	}
	if cfg.Webhook.Secret != "env-secret" {
		t.Errorf("expected webhook secret from env, got %s", cfg.Webhook.Secret)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "test-value"},
		{"$TEST_VAR", "test-value"},
		{"prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"${NONEXISTENT}", "${NONEXISTENT}"}, // Unset vars remain unchanged
		{"no-vars-here", "no-vars-here"},
	}

	for _, tt := range tests {
		result := expandEnvVar(tt.input)
		if result != tt.expected {
			t.Errorf("expandEnvVar(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestWatchReturnsInitialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "watch.yaml")

	if err := os.WriteFile(configPath, []byte("import:\n  batch_size: 7\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Watch(configPath, func(*Config) {}, nil)
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	if cfg.Import.BatchSize != 7 {
		t.Errorf("expected batch_size 7, got %d", cfg.Import.BatchSize)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides("debug", "text", 20, 2*time.Second)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format 'text', got %s", cfg.Logging.Format)
	}
	if cfg.Import.BatchSize != 20 {
		t.Errorf("expected batch_size 20, got %d", cfg.Import.BatchSize)
	}
	if cfg.Import.BatchDelay != 2*time.Second {
		t.Errorf("expected batch_delay 2s, got %s", cfg.Import.BatchDelay)
	}
}

func TestApplyOverridesZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides("", "", 0, 0)

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level to stay 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Import.BatchSize != 5 {
		t.Errorf("expected batch_size to stay 5, got %d", cfg.Import.BatchSize)
	}
	if cfg.Import.BatchDelay != 500*time.Millisecond {
		t.Errorf("expected batch_delay to stay 500ms, got %s", cfg.Import.BatchDelay)
	}
}
