// Package store provides the durable key-value credential store.
// Three key namespaces share one flat space: tenant bot tokens, per-user
// API keys, and expiring warned flags. No call spans more than one key.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/visionrelay/visionrelay/internal/config"
)

// ErrNotFound is returned by Get when a key has no value. Absence is an
// expected state for API keys, not a failure.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable string key-value store. Each call is independently
// atomic at the backend level.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetTTL stores a value that expires after ttl.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TokenKey is the namespace for tenant bot tokens.
func TokenKey(teamID string) string { return "token:" + teamID }

// APIKeyKey is the namespace for per-user inference API keys.
func APIKeyKey(userID string) string { return "key:" + userID }

// WarnedKey is the namespace for rate-limit flags on missing-key notices.
func WarnedKey(userID, messageTS string) string {
	return "warned:" + userID + ":" + messageTS
}

// New opens the store backend selected by cfg.
func New(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "rest":
		return NewRESTStore(cfg.RestURL, cfg.RestToken), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
