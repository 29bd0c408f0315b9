// Package strava is a minimal Strava v3 API client covering what the
// upload orchestrator and the activity listing endpoint need.
package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gsarma/fitrelay/internal/activityfile"
	"github.com/gsarma/fitrelay/internal/upload"
)

const defaultBaseURL = "https://www.strava.com"

// Client calls the Strava v3 REST API on behalf of one access token.
// Outbound requests share a rate limiter sized to Strava's published
// 100-requests-per-15-minutes budget.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the given access token.
func New(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(15*time.Minute/100), 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// uploadResponse is Strava's upload resource. ActivityID and Error are null
// while the upload is still processing.
type uploadResponse struct {
	ID         int64   `json:"id"`
	IDStr      string  `json:"id_str"`
	ExternalID string  `json:"external_id"`
	Error      *string `json:"error"`
	Status     string  `json:"status"`
	ActivityID *int64  `json:"activity_id"`
}

func (r *uploadResponse) toStatus() *upload.ProviderStatus {
	st := &upload.ProviderStatus{Handle: r.IDStr}
	if st.Handle == "" && r.ID != 0 {
		st.Handle = strconv.FormatInt(r.ID, 10)
	}
	if r.Error != nil {
		st.Failure = *r.Error
	}
	if r.ActivityID != nil {
		st.ActivityID = *r.ActivityID
	}
	return st
}

// SubmitUpload posts the compressed payload to the uploads endpoint and
// returns the provider's initial status.
func (c *Client) SubmitUpload(ctx context.Context, file *activityfile.File, meta upload.Metadata) (*upload.ProviderStatus, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", meta.Title+"."+file.TransportName())
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(file.Transport); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	fields := map[string]string{
		"data_type":     file.TransportName(),
		"name":          meta.Title,
		"description":   meta.Description,
		"activity_type": meta.ActivityType,
	}
	if meta.Private {
		fields["private"] = "1"
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/uploads", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw uploadResponse
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return raw.toStatus(), nil
}

// UploadStatus fetches the current state of a pending upload.
func (c *Client) UploadStatus(ctx context.Context, handle string) (*upload.ProviderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/uploads/"+url.PathEscape(handle), nil)
	if err != nil {
		return nil, err
	}
	var raw uploadResponse
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return raw.toStatus(), nil
}

// Activity is one remote activity summary.
type Activity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"start_date"`
	Distance  float64   `json:"distance"`
}

// ListActivities returns the athlete's activities within the given window.
// Zero bounds are omitted.
func (c *Client) ListActivities(ctx context.Context, after, before time.Time) ([]Activity, error) {
	q := url.Values{}
	if !after.IsZero() {
		q.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if !before.IsZero() {
		q.Set("before", strconv.FormatInt(before.Unix(), 10))
	}
	u := c.baseURL + "/api/v3/athlete/activities"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var activities []Activity
	if err := c.do(req, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// CheckToken verifies the access token against the athlete endpoint.
func (c *Client) CheckToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/athlete", nil)
	if err != nil {
		return err
	}
	var athlete struct {
		ID int64 `json:"id"`
	}
	return c.do(req, &athlete)
}

// APIError is a non-2xx answer from Strava.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the token was rejected, meaning the caller
// must re-authorize.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("strava request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode strava response: %w", err)
	}
	return nil
}
