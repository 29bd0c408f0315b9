package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/fitrelay/internal/activityfile"
	"github.com/gsarma/fitrelay/internal/credentials"
	"github.com/gsarma/fitrelay/internal/garmin"
	"github.com/gsarma/fitrelay/internal/oauth"
	"github.com/gsarma/fitrelay/internal/session"
	"github.com/gsarma/fitrelay/internal/strava"
	"github.com/gsarma/fitrelay/internal/upload"
)

// GarminLister is the session-backed Garmin Connect surface; satisfied by
// *garmin.Source.
type GarminLister interface {
	ActivitiesSince(ctx context.Context, since time.Time) ([]garmin.Activity, error)
}

// ProviderAPI is the provider surface the handlers drive: the upload
// protocol plus listing and a token check.
type ProviderAPI interface {
	upload.ProviderClient
	ListActivities(ctx context.Context, after, before time.Time) ([]strava.Activity, error)
	CheckToken(ctx context.Context) error
}

// Handler serves the browser-facing endpoints. Recognized outcomes answer
// 200 even when they carry a user-facing error message; only malformed
// upload requests get 400.
type Handler struct {
	broker *oauth.Broker
	store  *credentials.FileStore

	// newClient builds a provider client from an access token; swapped out
	// in tests.
	newClient func(accessToken string) ProviderAPI

	// garmin is nil when no Garmin account is configured.
	garmin GarminLister

	pollInterval  time.Duration
	uploadTimeout time.Duration
}

// WithGarmin attaches the session-backed Garmin source.
func (h *Handler) WithGarmin(g GarminLister) *Handler {
	h.garmin = g
	return h
}

func NewHandler(broker *oauth.Broker, store *credentials.FileStore, newClient func(string) ProviderAPI, pollInterval, uploadTimeout time.Duration) *Handler {
	return &Handler{
		broker:        broker,
		store:         store,
		newClient:     newClient,
		pollInterval:  pollInterval,
		uploadTimeout: uploadTimeout,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Authorize begins the OAuth flow: it answers with the provider authorize
// URL for the user-agent to follow.
func (h *Handler) Authorize(c *gin.Context) {
	provider := c.DefaultQuery("provider", "strava")
	url, err := h.broker.AuthorizeURL(oauth.AuthorizationRequest{Provider: provider})
	if err != nil {
		c.String(http.StatusBadRequest, "unknown provider %q", provider)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, `<a href="%s" target="_blank">Link</a>`, url)
}

// Callback completes the OAuth flow. Outcomes the user can act on (missing
// code, bad state, rejected exchange) render as 200 pages; only a success
// persists tokens.
func (h *Handler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	_, _, err := h.broker.HandleCallback(c.Request.Context(), code, state)
	switch {
	case err == nil:
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, "<h1>You are now authorized!</h1><br/><h3>This window can be closed</h3>")
	case errors.Is(err, oauth.ErrMissingCode):
		c.String(http.StatusOK, "No code received")
	case errors.Is(err, oauth.ErrMismatchingState):
		c.String(http.StatusOK, "CSRF Warning! Mismatching state")
	default:
		var exchangeErr *oauth.TokenExchangeError
		if errors.As(err, &exchangeErr) {
			c.String(http.StatusOK, "Token exchange failed.\nPlease check that you are using the correct client_secret")
			return
		}
		c.String(http.StatusInternalServerError, "authorization failed: %v", err)
	}
}

// uploadRequest is the JSON body of POST /.
type uploadRequest struct {
	Filename     string `json:"filename" binding:"required"`
	Title        string `json:"title" binding:"required"`
	ActivityType string `json:"activity_type" binding:"required"`
	Description  string `json:"description"`
	Private      bool   `json:"private"`
}

// Upload submits a local activity file to the provider and waits for the
// verdict. Validation problems answer 400 before any provider traffic; a
// missing authorization answers 200 with the authorize link to follow.
func (h *Handler) Upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "malformed upload request: %v", err)
		return
	}

	meta := upload.Metadata{
		Title:        req.Title,
		Description:  req.Description,
		Private:      req.Private,
		ActivityType: req.ActivityType,
	}
	if err := meta.Validate(); err != nil {
		c.String(http.StatusBadRequest, "%v", err)
		return
	}

	raw, err := os.ReadFile(req.Filename)
	if err != nil {
		c.String(http.StatusBadRequest, "missing file: %s", req.Filename)
		return
	}
	file, err := activityfile.Classify(raw, filepath.Ext(req.Filename))
	if err != nil {
		if errors.Is(err, activityfile.ErrUnsupportedFormat) {
			c.String(http.StatusBadRequest, "don't know how to handle %s", req.Filename)
			return
		}
		c.String(http.StatusBadRequest, "unreadable file: %v", err)
		return
	}

	client, ok := h.authorizedClient(c)
	if !ok {
		return
	}

	orch := upload.New(client, h.pollInterval)
	job, err := orch.Submit(c.Request.Context(), file, meta)
	if err != nil {
		c.String(http.StatusInternalServerError, "upload failed: %v", err)
		return
	}
	state, err := orch.AwaitCompletion(c.Request.Context(), job, h.uploadTimeout)
	if err != nil {
		c.String(http.StatusInternalServerError, "upload failed: %v", err)
		return
	}

	switch state {
	case upload.StateCompleted, upload.StateDuplicate:
		c.String(http.StatusOK, "https://www.strava.com/activities/%d", job.ActivityID)
	case upload.StateTimedOut:
		c.String(http.StatusOK, "upload %s still processing; check back later", job.Handle)
	default:
		c.String(http.StatusOK, "upload failed: %s", job.FailureReason)
	}
}

// Activities lists remote activities within an optional date window.
func (h *Handler) Activities(c *gin.Context) {
	after, err := parseDate(c.Query("start_date"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad start_date: %v", err)
		return
	}
	before, err := parseDate(c.Query("end_date"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad end_date: %v", err)
		return
	}

	client, ok := h.authorizedClient(c)
	if !ok {
		return
	}
	activities, err := client.ListActivities(c.Request.Context(), after, before)
	if err != nil {
		c.String(http.StatusInternalServerError, "list activities: %v", err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

// GarminActivities lists Garmin Connect activities newer than start_date,
// establishing the scripted-login session on demand. Fatal login failures
// tell the user to re-authenticate; transient ones invite a retry.
func (h *Handler) GarminActivities(c *gin.Context) {
	if h.garmin == nil {
		c.String(http.StatusServiceUnavailable, "garmin connect is not configured")
		return
	}
	since, err := parseDate(c.Query("start_date"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad start_date: %v", err)
		return
	}

	activities, err := h.garmin.ActivitiesSince(c.Request.Context(), since)
	if err != nil {
		var loginErr *session.LoginError
		if errors.As(err, &loginErr) {
			if loginErr.Retryable() {
				c.String(http.StatusOK, "garmin connect unavailable (%s); try again later", loginErr.Reason)
			} else {
				c.String(http.StatusOK, "garmin login failed (%s); update the configured credentials", loginErr.Reason)
			}
			return
		}
		c.String(http.StatusInternalServerError, "garmin activities: %v", err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

// authorizedClient loads the provider credential and verifies it. When the
// credential is absent or rejected it writes the authorize-link response
// itself and reports false: mutating provider calls only ever run with an
// authenticated credential.
func (h *Handler) authorizedClient(c *gin.Context) (ProviderAPI, bool) {
	cred, found, err := h.store.Load("strava")
	if err != nil {
		c.String(http.StatusInternalServerError, "credential store: %v", err)
		return nil, false
	}
	if !found || !cred.Authenticated() {
		h.renderAuthorizeLink(c)
		return nil, false
	}

	client := h.newClient(cred.AccessToken)
	if err := client.CheckToken(c.Request.Context()); err != nil {
		var apiErr *strava.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			// Expired or revoked: try a silent refresh first, then fall
			// back to the interactive flow.
			if refreshed, rerr := h.broker.Refresh(c.Request.Context(), "strava"); rerr == nil {
				return h.newClient(refreshed.AccessToken), true
			}
			h.renderAuthorizeLink(c)
			return nil, false
		}
		c.String(http.StatusInternalServerError, "provider unavailable: %v", err)
		return nil, false
	}
	return client, true
}

func (h *Handler) renderAuthorizeLink(c *gin.Context) {
	url, err := h.broker.AuthorizeURL(oauth.AuthorizationRequest{Provider: "strava"})
	if err != nil {
		c.String(http.StatusInternalServerError, "authorize: %v", err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, `<a href="%s" target="_blank">Link</a>`, url)
}

// parseDate accepts RFC 3339 or plain YYYY-MM-DD; empty means unbounded.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
