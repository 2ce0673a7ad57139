package exitguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to an ExitGuard server with site-key authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// OnIntervention is called whenever a tracked batch triggers an
	// intervention, before Track returns.
	OnIntervention func(sessionID string, iv *Intervention)
}

// NewClient creates a client for the given server base URL and site API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Track sends a behavior batch and returns the server's assessment.
func (c *Client) Track(ctx context.Context, req TrackRequest) (*TrackResponse, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	var out TrackResponse
	if err := c.post(ctx, "/api/track", req, &out); err != nil {
		return nil, err
	}

	if out.Intervention != nil && c.OnIntervention != nil {
		c.OnIntervention(out.SessionID, out.Intervention)
	}
	return &out, nil
}

// Convert reports a completed purchase for a session.
func (c *Client) Convert(ctx context.Context, sessionID string, orderValue float64) (*ConvertResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	body := map[string]any{
		"session_id":  sessionID,
		"order_value": orderValue,
	}
	var out ConvertResponse
	if err := c.post(ctx, "/api/convert", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InterventionShown confirms an intervention was rendered to the shopper.
// An empty interventionID marks the most recent one.
func (c *Client) InterventionShown(ctx context.Context, sessionID, interventionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	body := map[string]any{
		"session_id":      sessionID,
		"intervention_id": interventionID,
	}
	return c.post(ctx, "/api/intervention", body, nil)
}

// GetSession fetches the full server-side state of one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/session/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var wrapper struct {
		Session map[string]any `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return wrapper.Session, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
