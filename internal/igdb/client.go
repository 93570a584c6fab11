// Package igdb is the transport-level client for the IGDB v4 API.
//
// IGDB (Internet Games Database) is owned by Twitch/Amazon.
// API access: https://api-docs.igdb.com
// Auth: Twitch OAuth2 client credentials; this client takes a pre-issued
// app access token through the Credentials interface and performs no
// refresh of its own.
//
// Queries use the Apicalypse language in a text/plain POST body. Responses
// are returned as raw bytes; callers own all JSON interpretation.
package igdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	maxRetries  = 3
	backoffBase = 250 * time.Millisecond
	backoffCap  = 5 * time.Second
)

// ErrCredentialsMissing indicates the upstream client id or token is not
// configured. Mirror refreshes fail with this until credentials arrive;
// the query surface keeps serving whatever is already mirrored.
var ErrCredentialsMissing = errors.New("igdb: credentials not configured")

// APIError is a non-2xx upstream response.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("igdb: %s returned HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// Temporary reports whether the failure is worth retrying (rate-limit or
// server-side).
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Credentials supplies the Twitch client id and app access token per
// request, so a rotating token source can be plugged in without touching
// the client.
type Credentials interface {
	Creds(ctx context.Context) (clientID, token string, err error)
}

// StaticCredentials serves a fixed id/token pair from configuration.
type StaticCredentials struct {
	ClientID string
	Token    string
}

// Creds implements Credentials.
func (s StaticCredentials) Creds(context.Context) (string, string, error) {
	if s.ClientID == "" || s.Token == "" {
		return "", "", ErrCredentialsMissing
	}
	return s.ClientID, s.Token, nil
}

// throttledTransport spaces requests out to the upstream rate limit before
// handing them to the underlying transport.
type throttledTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// Client talks to one IGDB-compatible base URL. Safe for concurrent use.
type Client struct {
	baseURL string
	creds   Credentials
	httpc   *http.Client
}

// NewClient builds a client for the given base URL. rps is the request
// budget per second (IGDB free tier allows 4).
func NewClient(baseURL string, creds Credentials, timeout time.Duration, rps float64) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpc: &http.Client{
			Timeout: timeout,
			Transport: throttledTransport{
				limiter: rate.NewLimiter(rate.Limit(rps), 1),
				next:    http.DefaultTransport,
			},
		},
	}
}

// Query POSTs an Apicalypse query to the endpoint and returns the raw
// response body.
func (c *Client) Query(ctx context.Context, endpoint, body string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, "text/plain", []byte(body))
}

// SubmitForm POSTs a form-encoded body to the endpoint (webhook
// registration, count) and returns the raw response body.
func (c *Client) SubmitForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, "application/x-www-form-urlencoded", []byte(form.Encode()))
}

// Get issues a GET against the endpoint (webhook listing) and returns the
// raw response body.
func (c *Client) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, "", nil)
}

// do runs one upstream call with auth headers, retrying 429 and 5xx
// responses with capped exponential backoff. The request body is rebuilt
// from payload on every attempt.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, payload []byte) ([]byte, error) {
	clientID, token, err := c.creds.Creds(ctx)
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxRetries(maxRetries,
		retry.WithCappedDuration(backoffCap, retry.NewExponential(backoffBase)))

	var out []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, body)
		if err != nil {
			return fmt.Errorf("igdb: build request: %w", err)
		}
		req.Header.Set("Client-ID", clientID)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("igdb: %s %s: %w", method, endpoint, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("igdb: read %s response: %w", endpoint, err))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(data, 512)}
			if apiErr.Temporary() {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		out = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
