package gateway

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/visionrelay/visionrelay/internal/store"
)

// parseCommand verifies the form-encoded slash command and parses it. The
// body is re-attached after verification so SlashCommandParse can read it.
func (s *Server) parseCommand(w http.ResponseWriter, r *http.Request) (slack.SlashCommand, bool) {
	if !requirePost(w, r) {
		return slack.SlashCommand{}, false
	}
	body, ok := s.verifiedBody(w, r)
	if !ok {
		return slack.SlashCommand{}, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "invalid slash command", http.StatusBadRequest)
		return slack.SlashCommand{}, false
	}
	if trim(cmd.UserID) == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return slack.SlashCommand{}, false
	}
	return cmd, true
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.parseCommand(w, r)
	if !ok {
		return
	}
	key := trim(cmd.Text)
	if key == "" {
		plainText(w, http.StatusOK, "Usage: /set-apikey YOUR_KEY")
		return
	}
	if err := s.store.Set(r.Context(), store.APIKeyKey(cmd.UserID), key); err != nil {
		s.log.Error("api key set failed", "user", cmd.UserID, "error", err)
		plainText(w, http.StatusOK, ":x: Could not save your API key. Please try again.")
		return
	}
	s.log.Info("api key set", "user", cmd.UserID)
	plainText(w, http.StatusOK, ":white_check_mark: API key saved successfully.")
}

func (s *Server) handleGetAPIKey(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.parseCommand(w, r)
	if !ok {
		return
	}
	s.log.Info("api key get", "user", cmd.UserID)
	key, err := s.store.Get(r.Context(), store.APIKeyKey(cmd.UserID))
	if errors.Is(err, store.ErrNotFound) {
		plainText(w, http.StatusOK, ":x: No API key set.")
		return
	}
	if err != nil {
		s.log.Error("api key get failed", "user", cmd.UserID, "error", err)
		plainText(w, http.StatusOK, ":x: Could not read your API key. Please try again.")
		return
	}
	plainText(w, http.StatusOK, ":closed_lock_with_key: Your current API key is:\n```"+key+"```")
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.parseCommand(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), store.APIKeyKey(cmd.UserID)); err != nil {
		s.log.Error("api key delete failed", "user", cmd.UserID, "error", err)
		plainText(w, http.StatusOK, ":x: Could not remove your API key. Please try again.")
		return
	}
	s.log.Info("api key deleted", "user", cmd.UserID)
	plainText(w, http.StatusOK, ":wastebasket: API key removed.")
}
