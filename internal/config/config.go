// Package config provides configuration types and loading for visionrelay.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Gateway, Slack, Vision, Store, Dedupe.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Slack   SlackConfig   `json:"slack"`
	Vision  VisionConfig  `json:"vision"`
	Store   StoreConfig   `json:"store"`
	Dedupe  DedupeConfig  `json:"dedupe"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	PublicURL string `json:"publicUrl" envconfig:"PUBLIC_URL"`
	// AllowTokenFallback permits falling back to the static bot token when no
	// tenant-specific token is stored. Off by default: the fallback crosses
	// tenant boundaries and must be an explicit operator decision.
	AllowTokenFallback bool `json:"allowTokenFallback" envconfig:"ALLOW_TOKEN_FALLBACK"`
}

// ---------------------------------------------------------------------------
// Slack – platform credentials
// ---------------------------------------------------------------------------

// SlackConfig contains Slack app credentials and endpoints.
type SlackConfig struct {
	BotToken      string `json:"botToken" envconfig:"BOT_TOKEN"`
	ClientID      string `json:"clientId" envconfig:"CLIENT_ID"`
	ClientSecret  string `json:"clientSecret" envconfig:"CLIENT_SECRET"`
	SigningSecret string `json:"signingSecret" envconfig:"SIGNING_SECRET"`
	APIBase       string `json:"apiBase" envconfig:"API_BASE"`
	OAuthScopes   string `json:"oauthScopes" envconfig:"OAUTH_SCOPES"`
}

// ---------------------------------------------------------------------------
// Vision – inference API
// ---------------------------------------------------------------------------

// VisionConfig contains settings for the vision-inference API.
type VisionConfig struct {
	APIBase string `json:"apiBase" envconfig:"API_BASE"`
	// Agent selects the capability endpoint used for inbound images.
	Agent       string   `json:"agent" envconfig:"AGENT"`
	Instruction string   `json:"instruction" envconfig:"INSTRUCTION"`
	ObjectNames []string `json:"objectNames"`
	// DisableDefaultDetection turns off the counting endpoint's built-in
	// object classes so only ObjectNames are counted.
	DisableDefaultDetection bool          `json:"disableDefaultDetection" envconfig:"DISABLE_DEFAULT_DETECTION"`
	Timeout                 time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Store – durable key-value credential store
// ---------------------------------------------------------------------------

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Backend string `json:"backend" envconfig:"BACKEND"` // "sqlite" or "rest"
	RestURL string `json:"restUrl" envconfig:"REST_URL"`
	// RestToken authenticates against the REST key-value service.
	RestToken  string `json:"restToken" envconfig:"REST_TOKEN"`
	SQLitePath string `json:"sqlitePath" envconfig:"SQLITE_PATH"`
}

// ---------------------------------------------------------------------------
// Dedupe – event redelivery suppression
// ---------------------------------------------------------------------------

// DedupeConfig contains settings for the in-memory seen-event cache.
type DedupeConfig struct {
	TTL time.Duration `json:"ttl" envconfig:"TTL"`
	// WarnTTL is the cooldown for "no API key" notices per (user, message).
	WarnTTL time.Duration `json:"warnTtl" envconfig:"WARN_TTL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "127.0.0.1", // Secure default
			Port: 18980,
		},
		Slack: SlackConfig{
			APIBase:     "https://slack.com/api",
			OAuthScopes: "commands,files:read,chat:write",
		},
		Vision: VisionConfig{
			APIBase: "https://api.ai.vision.tiliter.com/api/v1/inference",
			Agent:   "receipt-processor",
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Dedupe: DedupeConfig{
			TTL:     time.Hour,
			WarnTTL: time.Hour,
		},
	}
}
