package gateway

import (
	"net/http"
	"net/url"

	"github.com/visionrelay/visionrelay/internal/store"
)

const authorizeURL = "https://slack.com/oauth/v2/authorize"

// handleInstall redirects the installer to Slack's OAuth authorize page with
// the fixed scope set.
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	q := url.Values{}
	q.Set("client_id", s.cfg.Slack.ClientID)
	q.Set("scope", s.cfg.Slack.OAuthScopes)
	q.Set("user_scope", "")
	http.Redirect(w, r, authorizeURL+"?"+q.Encode(), http.StatusFound)
}

// handleOAuthCallback exchanges the authorization code for a tenant bot token
// and persists it keyed by team id. Reinstalls overwrite the stored token.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := trim(r.URL.Query().Get("code"))
	if code == "" {
		plainText(w, http.StatusBadRequest, "Missing code")
		return
	}
	log := s.traceLogger()
	resp, err := s.exchangeOAuth(r.Context(), code)
	if err != nil {
		log.Error("oauth exchange failed", "error", err)
		plainText(w, http.StatusBadRequest, "OAuth failed")
		return
	}
	teamID := trim(resp.Team.ID)
	if teamID == "" || trim(resp.AccessToken) == "" {
		log.Error("oauth exchange returned incomplete response")
		plainText(w, http.StatusBadRequest, "OAuth failed")
		return
	}
	if err := s.store.Set(r.Context(), store.TokenKey(teamID), resp.AccessToken); err != nil {
		log.Error("token persist failed", "team_id", teamID, "error", err)
		plainText(w, http.StatusInternalServerError, "Failed to store credentials")
		return
	}
	s.noteInstall()
	log.Info("new app install", "team_id", teamID)
	plainText(w, http.StatusOK, "App installed successfully! You can now use the vision bot in your Slack workspace.")
}
