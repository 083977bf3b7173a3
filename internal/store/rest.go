package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RESTStore talks to an Upstash-compatible Redis REST service. Commands are
// encoded in the URL path (GET/SET/DEL) and authenticated with a bearer token.
type RESTStore struct {
	base   string
	token  string
	client *http.Client
}

// NewRESTStore creates a store backed by the REST key-value service at base.
func NewRESTStore(base, token string) *RESTStore {
	return &RESTStore{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		token:  strings.TrimSpace(token),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type restResult struct {
	Result *string `json:"result"`
	Error  string  `json:"error,omitempty"`
}

func (s *RESTStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.do(ctx, "GET", key)
	if err != nil {
		return "", err
	}
	if out.Result == nil {
		return "", ErrNotFound
	}
	return *out.Result, nil
}

func (s *RESTStore) Set(ctx context.Context, key, value string) error {
	_, err := s.do(ctx, "SET", key, value)
	return err
}

func (s *RESTStore) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	_, err := s.do(ctx, "SET", key, value, "EX", strconv.FormatInt(secs, 10))
	return err
}

func (s *RESTStore) Delete(ctx context.Context, key string) error {
	_, err := s.do(ctx, "DEL", key)
	return err
}

func (s *RESTStore) Close() error { return nil }

func (s *RESTStore) do(ctx context.Context, parts ...string) (*restResult, error) {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	u := s.base + "/" + strings.Join(segs, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kv %s: %w", parts[0], err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("kv %s status %d: %s", parts[0], resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out restResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("kv %s: invalid response: %w", parts[0], err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("kv %s: %s", parts[0], out.Error)
	}
	return &out, nil
}
