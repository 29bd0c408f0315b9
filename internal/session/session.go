package session

import (
	"context"
	"net/http"
)

// Session is the authenticated outcome of a scripted login: a cookie-bearing
// HTTP client plus the fixed headers the provider requires on every API
// call. Sessions live in memory only; they are never persisted and die with
// the process or when the provider invalidates them.
type Session struct {
	client  *http.Client
	headers http.Header
}

// Get issues an authenticated GET with the session's cookies and headers.
func (s *Session) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return s.Do(req)
}

// Do sends an arbitrary request through the session, applying the fixed
// headers without overriding any the caller already set.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	for k, vals := range s.headers {
		if req.Header.Get(k) == "" {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
	}
	return s.client.Do(req)
}
