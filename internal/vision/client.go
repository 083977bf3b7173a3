package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// UpstreamError reports a non-success response from the image host or the
// inference API. Status and body are carried verbatim so they can be shown
// to the user; these failures are terminal and never retried.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Body)
}

// Result is a parsed inference response.
type Result struct {
	Agent AgentType
	Raw   json.RawMessage
}

// Client issues synchronous inference calls against capability endpoints.
type Client struct {
	base   string
	client *http.Client
	log    *slog.Logger
}

// NewClient creates a client for the inference API at base. The timeout
// bounds every outbound call; zero selects a 30-second default.
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		client: &http.Client{Timeout: timeout},
		log:    slog.Default().With("component", "vision"),
	}
}

// FetchImage downloads a platform-hosted image with the tenant bot token.
func (c *Client) FetchImage(ctx context.Context, imageURL, botToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	if tok := strings.TrimSpace(botToken); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Op: "image download", Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image download: %w", err)
	}
	return data, nil
}

type inferRequest struct {
	ImageData               string   `json:"image_data"`
	Instruction             string   `json:"instruction,omitempty"`
	ObjectNames             []string `json:"object_names,omitempty"`
	DisableDefaultDetection bool     `json:"disable_default_detection,omitempty"`
}

type inferResponse struct {
	Result json.RawMessage `json:"result"`
}

// Infer posts an image to the capability endpoint for agent and returns the
// parsed result. The API key is caller-scoped, not a service credential.
func (c *Client) Infer(ctx context.Context, agent AgentType, image []byte, p Params, apiKey string) (*Result, error) {
	body := inferRequest{
		ImageData:   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		Instruction: strings.TrimSpace(p.Instruction),
	}
	if agent == AgentCounting {
		body.ObjectNames = p.ObjectNames
		body.DisableDefaultDetection = p.DisableDefaultDetection
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	u := c.base + "/" + agent.Slug()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	c.log.Info("sending inference request", "agent", string(agent), "bytes", len(image))
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference call: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Op:     "inference call",
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}

	var out inferResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse inference response: %w", err)
	}
	if len(out.Result) == 0 {
		return nil, fmt.Errorf("parse inference response: missing result field")
	}
	return &Result{Agent: agent, Raw: out.Result}, nil
}
