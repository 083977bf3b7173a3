package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/dedupe"
	"github.com/visionrelay/visionrelay/internal/store"
	"github.com/visionrelay/visionrelay/internal/vision"
)

const testSigningSecret = "s3cret"

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memStore) SetTTL(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memStore) Close() error { return nil }

type notifyCall struct {
	BotToken string
	Channel  string
	ThreadTS string
	Text     string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, botToken, channel, threadTS, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{botToken, channel, threadTS, text})
	return f.err
}

func (f *fakeNotifier) Calls() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifyCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// upstream serves both the image host and the inference API in tests.
type upstream struct {
	srv *httptest.Server

	mu          sync.Mutex
	inferStatus int
	inferBody   string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{inferStatus: http.StatusOK, inferBody: `{"result":{"merchant":"Corner Shop","total":"9.50","date":"2024-05-01"}}`}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".jpg") {
			w.Write([]byte("jpegbytes"))
			return
		}
		u.mu.Lock()
		status, body := u.inferStatus, u.inferBody
		u.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, body, status)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) setInfer(status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inferStatus = status
	u.inferBody = body
}

func (u *upstream) imageURL() string { return u.srv.URL + "/files/img.jpg" }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Slack.SigningSecret = testSigningSecret
	cfg.Slack.ClientID = "client-id"
	cfg.Slack.ClientSecret = "client-secret"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, up *upstream) (*Server, *memStore, *fakeNotifier) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if up != nil {
		cfg.Vision.APIBase = up.srv.URL
	}
	st := newMemStore()
	n := &fakeNotifier{}
	srv, err := New(cfg, st, dedupe.New(time.Hour), vision.NewClient(cfg.Vision.APIBase, 5*time.Second), n)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, st, n
}

func signedRequest(t *testing.T, method, path, contentType string, body []byte) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(string(body)))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	r.Header.Set("X-Slack-Request-Timestamp", ts)
	r.Header.Set("X-Slack-Signature", signBody(body, ts, testSigningSecret))
	return r
}

func postEvent(t *testing.T, srv *Server, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, signedRequest(t, http.MethodPost, "/events", "application/json", body))
	return w
}

func postCommand(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	body := []byte(form.Encode())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, signedRequest(t, http.MethodPost, path, "application/x-www-form-urlencoded", body))
	return w
}
