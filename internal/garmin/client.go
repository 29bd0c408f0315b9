// Package garmin lists and downloads activities from Garmin Connect using
// a session obtained through the scripted SSO login.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://connect.garmin.com"

// Getter is satisfied by *session.Session.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client wraps an authenticated Garmin Connect session.
type Client struct {
	sess    Getter
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different host (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// New creates a Client on top of an established session.
func New(sess Getter, opts ...Option) *Client {
	c := &Client{sess: sess, baseURL: defaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Activity is one Garmin Connect activity summary.
type Activity struct {
	ActivityID   int64  `json:"activityId"`
	ActivityName string `json:"activityName"`
	StartTimeGMT string `json:"startTimeGMT"`
}

// StartTime parses Garmin's "2006-01-02 15:04:05" GMT timestamp.
func (a Activity) StartTime() (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", a.StartTimeGMT)
}

// ListActivities returns the account's recent activities.
func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	url := c.baseURL + "/modern/proxy/activitylist-service/activities/search/activities"
	resp, err := c.sess.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list activities: status %d", resp.StatusCode)
	}
	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return activities, nil
}

// ActivitiesSince filters the activity list down to those starting after
// the given instant. Entries with unparseable timestamps are skipped.
func (c *Client) ActivitiesSince(ctx context.Context, since time.Time) ([]Activity, error) {
	all, err := c.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	var out []Activity
	for _, a := range all {
		start, err := a.StartTime()
		if err != nil {
			continue
		}
		if start.After(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

// DownloadActivity fetches the original recording for one activity as the
// zip archive Garmin serves.
func (c *Client) DownloadActivity(ctx context.Context, activityID int64) ([]byte, error) {
	url := c.baseURL + "/modern/proxy/download-service/files/activity/" + strconv.FormatInt(activityID, 10)
	resp, err := c.sess.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download activity %d: %w", activityID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download activity %d: status %d", activityID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
