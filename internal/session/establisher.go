// Package session establishes authenticated sessions against providers that
// have no clean OAuth2 endpoint, by scripting their browser login flow:
// POST credentials, classify the response body against a marker table, then
// follow a bounded redirect chain until the provider's backend is ready.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// FailureMarker maps a literal substring of the login response body to a
// failure classification. The marker strings are provider-version-dependent
// configuration, kept out of the control flow on purpose.
type FailureMarker struct {
	Marker string
	Reason Reason
}

// Script describes one provider's login choreography.
type Script struct {
	// LoginURL is the SSO entry point, used for both the preflight GET and
	// the credential POST.
	LoginURL    string
	LoginParams url.Values

	UsernameField string
	PasswordField string
	// ExtraFields are fixed form fields the provider requires alongside the
	// credentials.
	ExtraFields url.Values
	// SubmitHeaders are sent only with the credential POST.
	SubmitHeaders http.Header

	FailureMarkers []FailureMarker

	// ServiceURL is fetched after login; the provider answers with a
	// redirect chain that must be walked until it settles.
	ServiceURL string
	// HopLimit bounds the redirect chain; HopDelay is slept before each hop
	// because the redirect target is not immediately ready.
	HopLimit int
	HopDelay time.Duration

	// SessionHeaders are attached to every request made with the resolved
	// session.
	SessionHeaders http.Header
}

// Establisher performs the scripted login for one provider account.
type Establisher struct {
	script   Script
	username string
	password string
	client   *http.Client
}

// NewEstablisher builds an Establisher. The underlying client keeps cookies
// across hops and never follows redirects on its own: the chain walk owns
// every hop.
func NewEstablisher(script Script, username, password string) (*Establisher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Establisher{
		script:   script,
		username: username,
		password: password,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Login walks the scripted flow and returns a usable Session. Failures are
// classified as *LoginError; the caller decides retry policy from the
// reason.
func (e *Establisher) Login(ctx context.Context) (*Session, error) {
	if err := e.preflight(ctx); err != nil {
		return nil, err
	}
	if err := e.submitCredentials(ctx); err != nil {
		return nil, err
	}
	if err := e.followRedirectChain(ctx); err != nil {
		return nil, err
	}
	return &Session{client: e.client, headers: e.script.SessionHeaders}, nil
}

func (e *Establisher) loginURL() string {
	if len(e.script.LoginParams) == 0 {
		return e.script.LoginURL
	}
	return e.script.LoginURL + "?" + e.script.LoginParams.Encode()
}

func (e *Establisher) preflight(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.loginURL(), nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return &LoginError{Reason: ReasonPreflight, Detail: err.Error()}
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return &LoginError{Reason: ReasonPreflight, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return nil
}

func (e *Establisher) submitCredentials(ctx context.Context) error {
	form := url.Values{}
	for k, vals := range e.script.ExtraFields {
		form[k] = vals
	}
	form.Set(e.script.UsernameField, e.username)
	form.Set(e.script.PasswordField, e.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.loginURL(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vals := range e.script.SubmitHeaders {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &LoginError{Reason: ReasonTransientProvider, Detail: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &LoginError{Reason: ReasonTransientProvider, Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return &LoginError{Reason: ReasonTransientProvider, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	text := string(body)
	for _, fm := range e.script.FailureMarkers {
		if strings.Contains(text, fm.Marker) {
			return &LoginError{Reason: fm.Reason}
		}
	}
	return nil
}

// followRedirectChain fetches the service URL and walks the Location chain
// the provider answers with. Each hop waits HopDelay because the redirect
// target may not be provisioned yet. The chain resolves on the first 200 or
// 404; running past HopLimit without one is a retryable failure.
func (e *Establisher) followRedirectChain(ctx context.Context) error {
	resp, err := e.get(ctx, e.script.ServiceURL)
	if err != nil {
		return &LoginError{Reason: ReasonTransientProvider, Detail: err.Error()}
	}
	drain(resp)
	if resp.StatusCode != http.StatusFound {
		return &LoginError{Reason: ReasonTransientProvider,
			Detail: fmt.Sprintf("redirect chain start: status %d", resp.StatusCode)}
	}

	origin, err := originOf(e.script.ServiceURL)
	if err != nil {
		return err
	}

	for hop := 1; hop <= e.script.HopLimit; hop++ {
		if err := sleep(ctx, e.script.HopDelay); err != nil {
			return err
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			return &LoginError{Reason: ReasonRedirectChainExhausted,
				Detail: fmt.Sprintf("hop %d: no location", hop)}
		}
		// Relative locations resolve against the last known origin.
		if strings.HasPrefix(loc, "/") {
			loc = origin + loc
		}
		if origin, err = originOf(loc); err != nil {
			return &LoginError{Reason: ReasonRedirectChainExhausted,
				Detail: fmt.Sprintf("hop %d: bad location %q", hop, loc)}
		}

		resp, err = e.get(ctx, loc)
		if err != nil {
			return &LoginError{Reason: ReasonTransientProvider, Detail: err.Error()}
		}
		drain(resp)
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
			return nil
		}
	}
	return &LoginError{Reason: ReasonRedirectChainExhausted,
		Detail: fmt.Sprintf("no terminal response within %d hops", e.script.HopLimit)}
}

func (e *Establisher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return e.client.Do(req)
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// sleep waits for d but aborts when the context is done, so a caller
// deadline cuts the chain walk short instead of blocking through a hop.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
