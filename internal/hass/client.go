package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/config"
)

const defaultTimeout = 10 * time.Second

// Client talks to the Home Assistant REST API.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// New creates a Home Assistant REST client from configuration.
func New(cfg config.HassConfig) *Client {
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// State is one entry from the Home Assistant state registry.
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// IndigoID returns the bridge-assigned Indigo ID attribute, empty when
// the entity did not come from this bridge.
func (s State) IndigoID() string {
	switch v := s.Attributes["indigo_id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// FriendlyName returns the entity's display name.
func (s State) FriendlyName() string {
	name, _ := s.Attributes["friendly_name"].(string)
	return name
}

// PostEvent fires an event on the Home Assistant event bus.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - event: Event type, such as "indigo_hassbridge_on"
//   - payload: Event data, may be nil
func (c *Client) PostEvent(ctx context.Context, event string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}

	endpoint := c.url + "/api/events/" + url.PathEscape(event)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating event request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return c.checkStatus(resp)
}

// GetStates fetches the full Home Assistant state registry. The bridge
// filters the result for entities carrying its indigo_id attribute.
func (c *Client) GetStates(ctx context.Context) ([]State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/states", nil)
	if err != nil {
		return nil, fmt.Errorf("creating states request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var states []State
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("decoding states response: %w", err)
	}
	return states, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
}
