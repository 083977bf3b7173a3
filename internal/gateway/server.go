// Package gateway is the HTTP surface of visionrelay: the events webhook,
// the API-key slash commands, and the OAuth install flow.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/dedupe"
	"github.com/visionrelay/visionrelay/internal/store"
	"github.com/visionrelay/visionrelay/internal/vision"
)

// Notifier posts a reply into a conversation thread with a tenant bot token.
type Notifier interface {
	Notify(ctx context.Context, botToken, channel, threadTS, text string) error
}

// Metrics counts request outcomes for the /status endpoint.
type Metrics struct {
	StartedAt string `json:"started_at"`

	EventsProcessed int `json:"events_processed"`
	EventsDeduped   int `json:"events_deduped"`
	ImagesHandled   int `json:"images_handled"`
	AuthRejected    int `json:"auth_rejected"`
	NotifyErrors    int `json:"notify_errors"`
	Installs        int `json:"installs"`
	MissingKeyWarns int `json:"missing_key_warns"`
}

// Server routes inbound webhook traffic. All collaborators are injected so
// tests can swap them; nothing reads package-level state.
type Server struct {
	cfg      *config.Config
	store    store.Store
	dedupe   *dedupe.Cache
	vision   *vision.Client
	notifier Notifier
	agent    vision.AgentType
	log      *slog.Logger

	// exchangeOAuth is swappable in tests; the default posts to Slack's
	// oauth.v2.access endpoint.
	exchangeOAuth func(ctx context.Context, code string) (*slack.OAuthV2Response, error)

	metricsMu sync.Mutex
	metrics   Metrics
	startedAt time.Time
}

// New wires a gateway server from its collaborators.
func New(cfg *config.Config, st store.Store, dd *dedupe.Cache, vc *vision.Client, n Notifier) (*Server, error) {
	agent, err := vision.ParseAgentType(cfg.Vision.Agent)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		store:     st,
		dedupe:    dd,
		vision:    vc,
		notifier:  n,
		agent:     agent,
		log:       slog.Default().With("component", "gateway"),
		startedAt: time.Now().UTC(),
	}
	s.metrics.StartedAt = s.startedAt.Format(time.RFC3339)
	s.exchangeOAuth = func(ctx context.Context, code string) (*slack.OAuthV2Response, error) {
		return slack.GetOAuthV2ResponseContext(ctx, &http.Client{Timeout: 20 * time.Second},
			cfg.Slack.ClientID, cfg.Slack.ClientSecret, code, "")
	}
	return s, nil
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/install", s.handleInstall)
	mux.HandleFunc("/oauth/callback", s.handleOAuthCallback)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/set-apikey", s.handleSetAPIKey)
	mux.HandleFunc("/get-apikey", s.handleGetAPIKey)
	mux.HandleFunc("/delete-apikey", s.handleDeleteAPIKey)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "visionrelay is running.")
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.metricsMu.Lock()
	metrics := s.metrics
	s.metricsMu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":           true,
		"metrics":      metrics,
		"dedupe_cache": s.dedupe.Len(),
		"agent":        string(s.agent),
	})
}

// verifiedBody reads and signature-checks the request body. On failure it
// writes the 401 response and returns ok=false; no side effect has happened
// by that point.
func (s *Server) verifiedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return nil, false
	}
	ts := r.Header.Get("X-Slack-Request-Timestamp")
	sig := r.Header.Get("X-Slack-Signature")
	if err := VerifySignature(body, ts, sig, s.cfg.Slack.SigningSecret, time.Now()); err != nil {
		s.noteAuthRejected()
		s.log.Warn("signature verification failed", "path", r.URL.Path, "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

func (s *Server) traceLogger() *slog.Logger {
	return s.log.With("trace_id", uuid.NewString())
}

func (s *Server) noteAuthRejected() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.AuthRejected++
}

func (s *Server) noteEvent(deduped bool) {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	if deduped {
		s.metrics.EventsDeduped++
		return
	}
	s.metrics.EventsProcessed++
}

func (s *Server) noteImageHandled() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.ImagesHandled++
}

func (s *Server) noteNotifyError() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.NotifyErrors++
}

func (s *Server) noteInstall() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.Installs++
}

func (s *Server) noteMissingKeyWarn() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.MissingKeyWarns++
}

func plainText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func trim(s string) string { return strings.TrimSpace(s) }
