package matchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
)

// ErrNotFound is returned when the match does not exist or the caller lacks
// access to it. It is terminal: callers should not retry.
var ErrNotFound = errors.New("match not found")

// ErrServer is returned on transport failures and 5xx responses. It is
// transient: callers may retry.
var ErrServer = errors.New("server error")

// Client talks to the match service HTTP API
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient creates a match API client for the given base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header on every outgoing request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout overrides the request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// GetSnapshot fetches the authoritative snapshot for a match.
// Returns ErrNotFound for unknown matches and ErrServer for 5xx/transport
// failures.
func (c *Client) GetSnapshot(ctx context.Context, matchID uuid.UUID) (*models.MatchSnapshot, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/api/matches/%s", matchID), nil)
	if err != nil {
		return nil, err
	}

	var snap models.MatchSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// CreateMatch creates a new scheduled match
func (c *Client) CreateMatch(ctx context.Context, req any) (*models.Match, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.makeRequest(ctx, http.MethodPost, "/api/matches", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var m models.Match
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to decode match: %w", err)
	}
	return &m, nil
}

// StartMatch asks the match engine to start a scheduled match
func (c *Client) StartMatch(ctx context.Context, matchID uuid.UUID) error {
	return c.control(ctx, matchID, "start")
}

// PauseMatch asks the match engine to pause a running match
func (c *Client) PauseMatch(ctx context.Context, matchID uuid.UUID) error {
	return c.control(ctx, matchID, "pause")
}

// ResumeMatch asks the match engine to resume a paused match
func (c *Client) ResumeMatch(ctx context.Context, matchID uuid.UUID) error {
	return c.control(ctx, matchID, "resume")
}

func (c *Client) control(ctx context.Context, matchID uuid.UUID, action string) error {
	_, err := c.makeRequest(ctx, http.MethodPost, fmt.Sprintf("/api/matches/%s/%s", matchID, action), nil)
	return err
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrServer, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return responseBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, string(responseBody))
	default:
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}
}
