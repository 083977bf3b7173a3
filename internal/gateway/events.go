package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/visionrelay/visionrelay/internal/store"
	"github.com/visionrelay/visionrelay/internal/vision"
)

// missingKeyNotice is posted at most once per (user, message) within the
// warn cooldown.
const missingKeyNotice = ":warning: You haven't set your vision API key yet.\n\n" +
	"Use `/set-apikey YOUR_KEY` to activate image processing."

type eventEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	TeamID    string     `json:"team_id"`
	EventID   string     `json:"event_id"`
	Event     innerEvent `json:"event"`
}

type innerEvent struct {
	Type    string      `json:"type"`
	Subtype string      `json:"subtype"`
	User    string      `json:"user"`
	BotID   string      `json:"bot_id"`
	Channel string      `json:"channel"`
	TS      string      `json:"ts"`
	Files   []eventFile `json:"files"`
}

type eventFile struct {
	Mimetype   string `json:"mimetype"`
	URLPrivate string `json:"url_private"`
}

// handleEvents is the webhook intake. Per-request states: unverified →
// verified → (deduplicated | processed). Every outcome is a 200-level
// plain-text ack; failures inside processing become thread replies, not
// HTTP errors, because Slack retries non-2xx deliveries.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	body, ok := s.verifiedBody(w, r)
	if !ok {
		return
	}

	var payload eventEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if payload.Type == "url_verification" {
		plainText(w, http.StatusOK, payload.Challenge)
		return
	}

	if s.dedupe.SeenOrMark(payload.EventID) {
		s.noteEvent(true)
		plainText(w, http.StatusOK, "Duplicate")
		return
	}
	s.noteEvent(false)

	log := s.traceLogger().With("event_id", payload.EventID, "team_id", payload.TeamID)
	ctx := r.Context()

	ev := payload.Event
	if ev.Type != "message" || ev.Subtype != "file_share" {
		plainText(w, http.StatusOK, "OK")
		return
	}
	if trim(ev.BotID) != "" {
		plainText(w, http.StatusOK, "Ignore bot")
		return
	}

	botToken, ok := s.resolveBotToken(ctx, payload.TeamID, log)
	if !ok {
		log.Warn("no bot token available, skipping event")
		plainText(w, http.StatusOK, "OK")
		return
	}

	apiKey, err := s.store.Get(ctx, store.APIKeyKey(ev.User))
	if errors.Is(err, store.ErrNotFound) {
		s.warnMissingKey(ctx, ev, botToken, log)
		plainText(w, http.StatusOK, "No API key")
		return
	}
	if err != nil {
		log.Error("credential lookup failed", "user", ev.User, "error", err)
		plainText(w, http.StatusOK, "OK")
		return
	}

	for _, file := range ev.Files {
		if !strings.HasPrefix(file.Mimetype, "image/") {
			continue
		}
		log.Info("image upload received", "user", ev.User, "channel", ev.Channel)
		result := s.handleImage(ctx, log, file.URLPrivate, apiKey, botToken)
		if err := s.notifier.Notify(ctx, botToken, ev.Channel, ev.TS, result); err != nil {
			s.noteNotifyError()
		}
		s.noteImageHandled()
	}
	plainText(w, http.StatusOK, "OK")
}

// resolveBotToken returns the tenant token for teamID. The static-token
// fallback crosses tenant boundaries, so it only applies when the operator
// opted in explicitly.
func (s *Server) resolveBotToken(ctx context.Context, teamID string, log *slog.Logger) (string, bool) {
	token, err := s.store.Get(ctx, store.TokenKey(teamID))
	if err == nil && trim(token) != "" {
		return token, true
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("token lookup failed", "error", err)
	}
	if s.cfg.Gateway.AllowTokenFallback && trim(s.cfg.Slack.BotToken) != "" {
		log.Warn("no stored bot token, using static fallback token")
		return s.cfg.Slack.BotToken, true
	}
	return "", false
}

// warnMissingKey posts the instructional notice, rate-limited per
// (user, message timestamp) via an expiring warned flag.
func (s *Server) warnMissingKey(ctx context.Context, ev innerEvent, botToken string, log *slog.Logger) {
	warnKey := store.WarnedKey(ev.User, ev.TS)
	if _, err := s.store.Get(ctx, warnKey); err == nil {
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("warned flag lookup failed", "error", err)
		return
	}
	if err := s.store.SetTTL(ctx, warnKey, "1", s.cfg.Dedupe.WarnTTL); err != nil {
		log.Error("warned flag set failed", "error", err)
	}
	log.Warn("no API key configured", "user", ev.User)
	s.noteMissingKeyWarn()
	if err := s.notifier.Notify(ctx, botToken, ev.Channel, ev.TS, missingKeyNotice); err != nil {
		s.noteNotifyError()
	}
}

// handleImage runs the download → infer → format chain. Every failure is
// rendered as a visible reply string; nothing propagates to the caller.
func (s *Server) handleImage(ctx context.Context, log *slog.Logger, imageURL, apiKey, botToken string) string {
	image, err := s.vision.FetchImage(ctx, imageURL, botToken)
	if err != nil {
		var ue *vision.UpstreamError
		if errors.As(err, &ue) {
			log.Error("image download failed", "status", ue.Status)
			return ":x: Failed to download image. Status: " + strconv.Itoa(ue.Status)
		}
		log.Error("image download failed", "error", err)
		return ":x: Failed to download image."
	}

	params := vision.Params{
		Instruction:             s.cfg.Vision.Instruction,
		ObjectNames:             s.cfg.Vision.ObjectNames,
		DisableDefaultDetection: s.cfg.Vision.DisableDefaultDetection,
	}
	result, err := s.vision.Infer(ctx, s.agent, image, params, apiKey)
	if err != nil {
		var ue *vision.UpstreamError
		if errors.As(err, &ue) {
			log.Error("inference failed", "status", ue.Status, "body", ue.Body)
			return ":x: Vision API error " + strconv.Itoa(ue.Status) + ": " + ue.Body
		}
		log.Error("inference failed", "error", err)
		return ":x: Could not parse vision response: " + err.Error()
	}
	return vision.Format(result.Agent, result.Raw)
}
