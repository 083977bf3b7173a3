package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("VISIONRELAY_HOME", "")
	t.Setenv("VISIONRELAY_CONFIG", "")
	t.Setenv("VISIONRELAY_ENV_FILE", "")
	for _, key := range []string{
		"VISIONRELAY_SLACK_SIGNING_SECRET", "VISIONRELAY_SLACK_BOT_TOKEN",
		"VISIONRELAY_GATEWAY_PORT", "VISIONRELAY_STORE_BACKEND",
		"SLACK_TOKEN", "SLACK_SIGNING_SECRET",
		"UPSTASH_REDIS_REST_URL", "UPSTASH_REDIS_REST_TOKEN",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return tmp
}

func TestLoadDefaultsWhenNoConfigFile(t *testing.T) {
	tmp := isolateEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Host != "127.0.0.1" || cfg.Gateway.Port != 18980 {
		t.Fatalf("unexpected gateway defaults: %+v", cfg.Gateway)
	}
	if cfg.Vision.Agent != "receipt-processor" {
		t.Fatalf("unexpected default agent %q", cfg.Vision.Agent)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("unexpected default backend %q", cfg.Store.Backend)
	}
	want := filepath.Join(tmp, ConfigDir, "credentials.db")
	if cfg.Store.SQLitePath != want {
		t.Fatalf("sqlite path: got %q want %q", cfg.Store.SQLitePath, want)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	tmp := isolateEnv(t)
	cfgDir := filepath.Join(tmp, ConfigDir)
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := `{"gateway":{"port":9001},"slack":{"signingSecret":"from-file"},"dedupe":{"ttl":1800000000000}}`
	if err := os.WriteFile(filepath.Join(cfgDir, ConfigFile), []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VISIONRELAY_SLACK_SIGNING_SECRET", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Port != 9001 {
		t.Fatalf("file value not applied, port=%d", cfg.Gateway.Port)
	}
	if cfg.Slack.SigningSecret != "from-env" {
		t.Fatalf("env must override file, got %q", cfg.Slack.SigningSecret)
	}
	if cfg.Dedupe.TTL != 30*time.Minute {
		t.Fatalf("ttl from file: %v", cfg.Dedupe.TTL)
	}
}

func TestLoadSubstitutesEnvPlaceholders(t *testing.T) {
	tmp := isolateEnv(t)
	cfgDir := filepath.Join(tmp, ConfigDir)
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := `{"slack":{"signingSecret":"${TEST_SIGNING_SECRET}"}}`
	if err := os.WriteFile(filepath.Join(cfgDir, ConfigFile), []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TEST_SIGNING_SECRET", "substituted")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Slack.SigningSecret != "substituted" {
		t.Fatalf("placeholder not substituted: %q", cfg.Slack.SigningSecret)
	}
}

func TestLoadLegacyEnvSelectsRestBackend(t *testing.T) {
	isolateEnv(t)
	t.Setenv("UPSTASH_REDIS_REST_URL", "https://kv.example.com")
	t.Setenv("UPSTASH_REDIS_REST_TOKEN", "kv-token")
	t.Setenv("SLACK_SIGNING_SECRET", "legacy-secret")
	t.Setenv("VISIONRELAY_STORE_BACKEND", "")
	os.Unsetenv("VISIONRELAY_STORE_BACKEND")

	// Clear the configured default so the legacy autodetect can kick in.
	cfgDir := filepath.Join(os.Getenv("HOME"), ConfigDir)
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, ConfigFile), []byte(`{"store":{"backend":""}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "rest" {
		t.Fatalf("expected rest backend autodetect, got %q", cfg.Store.Backend)
	}
	if cfg.Store.RestURL != "https://kv.example.com" || cfg.Store.RestToken != "kv-token" {
		t.Fatalf("legacy kv settings not applied: %+v", cfg.Store)
	}
	if cfg.Slack.SigningSecret != "legacy-secret" {
		t.Fatalf("legacy signing secret not applied: %q", cfg.Slack.SigningSecret)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err == nil {
		t.Fatalf("missing signing secret must fail validation")
	}
	cfg.Slack.SigningSecret = "s"
	cfg.Store.SQLitePath = "/tmp/creds.db"
	if err := Validate(cfg); err != nil {
		t.Fatalf("sqlite config should validate: %v", err)
	}

	cfg.Store.Backend = "rest"
	if err := Validate(cfg); err == nil {
		t.Fatalf("rest backend without url/token must fail")
	}
	cfg.Store.RestURL = "https://kv.example.com"
	cfg.Store.RestToken = "tok"
	if err := Validate(cfg); err != nil {
		t.Fatalf("rest config should validate: %v", err)
	}

	cfg.Store.Backend = "etcd"
	if err := Validate(cfg); err == nil {
		t.Fatalf("unknown backend must fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolateEnv(t)
	cfg := DefaultConfig()
	cfg.Slack.SigningSecret = "persisted"
	cfg.Gateway.Port = 9999
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Slack.SigningSecret != "persisted" || loaded.Gateway.Port != 9999 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
