// Package fitrelay provides a Go client for the fitrelay API.
//
// fitrelay is a small relay service that brokers OAuth authorization for
// fitness providers, uploads activity files, and lists recorded activities.
//
// Usage:
//
//	client := fitrelay.New("http://localhost:8080")
//
//	// Upload an activity file already present on the server host
//	msg, err := client.Upload(ctx, fitrelay.UploadRequest{
//	    Filename:     "/data/morning.tcx",
//	    Title:        "Morning Run",
//	    ActivityType: "run",
//	})
package fitrelay

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
)

// Client is the fitrelay API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a fitrelay client.
// baseURL should be the root URL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health checks that the fitrelay server is reachable and healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/health", nil, http.StatusOK)
}

// AuthorizeURL returns the fitrelay endpoint that starts the OAuth flow for
// a provider. Open it in a browser; the page links to the provider's
// authorization screen and the server captures the callback.
func (c *Client) AuthorizeURL(provider string) string {
	return fmt.Sprintf("%s/auth?provider=%s", c.baseURL, url.QueryEscape(provider))
}

// Upload asks the server to classify and upload an activity file, waiting
// for the provider to finish processing. The returned message is the
// server's verdict: an activity URL on success or duplicate, a notice when
// processing outlasted the wait window, or the provider's failure reason.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (string, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/", req)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fitrelay: read response: %w", err)
	}
	return string(bytes.TrimSpace(body)), nil
}

// Activities lists provider activities recorded between start and end.
func (c *Client) Activities(ctx context.Context, start, end time.Time) ([]Activity, error) {
	query := map[string]string{
		"start_date": start.Format("2006-01-02"),
		"end_date":   end.Format("2006-01-02"),
	}
	out, err := doRequestWithQuery[[]Activity](ctx, c, http.MethodGet, "/activities", query, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// GarminActivities lists Garmin Connect activities newer than since. The
// server answers a plain-text notice instead of a listing when its scripted
// login fails; that notice is surfaced as an *APIError.
func (c *Client) GarminActivities(ctx context.Context, since time.Time) ([]GarminActivity, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/garmin/activities", nil)
	if err != nil {
		return nil, err
	}
	q := httpReq.URL.Query()
	q.Set("start_date", since.Format("2006-01-02"))
	httpReq.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK ||
		!strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return nil, parseError(resp)
	}
	var out []GarminActivity
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fitrelay: decode response: %w", err)
	}
	return out, nil
}

// --- internal helpers ---

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("fitrelay: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, body any, expectedStatus int) (*T, error) {
	return doRequestWithQuery[T](ctx, c, method, path, nil, body, expectedStatus)
}

func doRequestWithQuery[T any](ctx context.Context, c *Client, method, path string, query map[string]string, body any, expectedStatus int) (*T, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return nil, parseError(resp)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fitrelay: decode response: %w", err)
	}
	return &out, nil
}

func parseError(resp *http.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		e.Message = string(bytes.TrimSpace(body))
	} else {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
