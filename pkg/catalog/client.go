package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a typed HTTP client for the Ludex catalog API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config holds the Ludex client configuration
type Config struct {
	BaseURL    string        // Service base URL, e.g. "http://localhost:8085"
	Timeout    time.Duration // Per-request timeout (default: 30 seconds)
	HTTPClient *http.Client  // Optional custom client; Timeout is ignored when set
}

// New creates a new Ludex client
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}

	// Set defaults
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// Health checks connectivity and returns per-collection document counts.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check failed: %d", resp.StatusCode)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &h, nil
}

// GetGame fetches a single game by its catalog id.
func (c *Client) GetGame(ctx context.Context, id uint64) (*Game, error) {
	var game *Game
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/igdb/game/%d", id), nil, &game); err != nil {
		return nil, err
	}
	return game, nil
}

// Search returns catalog entries whose primary or alternative names match
// term, best match first.
func (c *Client) Search(ctx context.Context, term string) ([]Game, error) {
	var games []Game
	if err := c.call(ctx, http.MethodPost, "/igdb/search", searchRequest{SearchTerm: term}, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// GetMetadata resolves a noisy title (plus optional hints) to a single
// catalog entry. A nil game with a nil error means nothing matched.
func (c *Client) GetMetadata(ctx context.Context, req MetadataRequest) (*Game, error) {
	var game *Game
	if err := c.call(ctx, http.MethodPost, "/igdb/metadata", req, &game); err != nil {
		return nil, err
	}
	return game, nil
}

// envelope is the {data}/{error} wrapper every /igdb response carries.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

// call sends a JSON request and unwraps the response envelope.
// Application failures arrive with HTTP 200 and an error body; those
// surface as *APIError so callers can tell them from transport errors.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return &APIError{Message: env.Error.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
