// Package notify posts reply messages into Slack conversation threads.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier posts text messages via chat.postMessage. Delivery is
// best-effort: by the time a reply is ready the webhook response has usually
// already been sent, so failures are logged and never retried.
type SlackNotifier struct {
	apiBase string
	client  *http.Client
	log     *slog.Logger
}

// New creates a notifier against apiBase (empty selects the public Slack API).
func New(apiBase string, timeout time.Duration) *SlackNotifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SlackNotifier{
		apiBase: strings.TrimSpace(apiBase),
		client:  &http.Client{Timeout: timeout},
		log:     slog.Default().With("component", "notify"),
	}
}

// Notify posts text into the given channel, threaded under threadTS when set.
// The bot token is tenant-resolved and supplied per call.
func (n *SlackNotifier) Notify(ctx context.Context, botToken, channel, threadTS, text string) error {
	if strings.TrimSpace(botToken) == "" {
		return errors.New("notify: missing bot token")
	}
	api := n.api(botToken)
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if ts := strings.TrimSpace(threadTS); ts != "" {
		opts = append(opts, slack.MsgOptionTS(ts))
	}
	_, _, err := api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		n.log.Warn("post message failed", "channel", channel, "error", err)
		return err
	}
	return nil
}

func (n *SlackNotifier) api(botToken string) *slack.Client {
	opts := []slack.Option{slack.OptionHTTPClient(n.client)}
	if base := n.apiBase; base != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(base, "/")+"/"))
	}
	return slack.New(botToken, opts...)
}
