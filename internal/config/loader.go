package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".visionrelay"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("VISIONRELAY_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("VISIONRELAY_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load process env vars from ~/.config/visionrelay/env (and fallbacks) first.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	// If file doesn't exist, continue with defaults

	// Override with environment variables for each group
	envconfig.Process("VISIONRELAY_GATEWAY", &cfg.Gateway)
	envconfig.Process("VISIONRELAY_SLACK", &cfg.Slack)
	envconfig.Process("VISIONRELAY_VISION", &cfg.Vision)
	envconfig.Process("VISIONRELAY_STORE", &cfg.Store)
	envconfig.Process("VISIONRELAY_DEDUPE", &cfg.Dedupe)

	// Legacy env var compatibility with the original deployment
	if cfg.Slack.BotToken == "" {
		cfg.Slack.BotToken = strings.TrimSpace(os.Getenv("SLACK_TOKEN"))
	}
	if cfg.Slack.SigningSecret == "" {
		cfg.Slack.SigningSecret = strings.TrimSpace(os.Getenv("SLACK_SIGNING_SECRET"))
	}
	if cfg.Store.RestURL == "" {
		cfg.Store.RestURL = strings.TrimSpace(os.Getenv("UPSTASH_REDIS_REST_URL"))
	}
	if cfg.Store.RestToken == "" {
		cfg.Store.RestToken = strings.TrimSpace(os.Getenv("UPSTASH_REDIS_REST_TOKEN"))
	}
	if cfg.Store.RestURL != "" && strings.TrimSpace(cfg.Store.Backend) == "" {
		cfg.Store.Backend = "rest"
	}

	// Expand ~ in paths
	expandHome := func(p *string) {
		if strings.HasPrefix(*p, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				*p = filepath.Join(home, (*p)[1:])
			}
		}
	}
	expandHome(&cfg.Store.SQLitePath)

	if cfg.Store.SQLitePath == "" {
		if home, err := resolveHomeDir(); err == nil {
			cfg.Store.SQLitePath = filepath.Join(home, ConfigDir, "credentials.db")
		}
	}
	if cfg.Dedupe.TTL <= 0 {
		cfg.Dedupe.TTL = DefaultConfig().Dedupe.TTL
	}
	if cfg.Dedupe.WarnTTL <= 0 {
		cfg.Dedupe.WarnTTL = DefaultConfig().Dedupe.WarnTTL
	}

	return cfg, nil
}

// Validate checks that the settings required to serve webhooks are present.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Slack.SigningSecret) == "" {
		return fmt.Errorf("slack signing secret is required (slack.signingSecret or VISIONRELAY_SLACK_SIGNING_SECRET)")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Backend)) {
	case "sqlite":
		if strings.TrimSpace(cfg.Store.SQLitePath) == "" {
			return fmt.Errorf("store.sqlitePath is required for the sqlite backend")
		}
	case "rest":
		if strings.TrimSpace(cfg.Store.RestURL) == "" || strings.TrimSpace(cfg.Store.RestToken) == "" {
			return fmt.Errorf("store.restUrl and store.restToken are required for the rest backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want sqlite or rest)", cfg.Store.Backend)
	}
	return nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func loadResolvedConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	substituteEnvValues(raw)
	return json.Marshal(raw)
}

func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			parts := envPattern.FindStringSubmatch(match)
			if len(parts) != 2 {
				return match
			}
			if value, ok := os.LookupEnv(parts[1]); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
