package garmin

import (
	"context"
	"sync"
	"time"

	"github.com/gsarma/fitrelay/internal/session"
)

// Source lazily establishes a Garmin Connect session on first use and keeps
// it for subsequent calls. A session the provider has expired is dropped so
// the next call logs in again.
type Source struct {
	mu     sync.Mutex
	est    *session.Establisher
	client *Client
	opts   []Option
}

// NewSource wraps a login establisher.
func NewSource(est *session.Establisher, opts ...Option) *Source {
	return &Source{est: est, opts: opts}
}

func (s *Source) getClient(ctx context.Context) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	sess, err := s.est.Login(ctx)
	if err != nil {
		return nil, err
	}
	s.client = New(sess, s.opts...)
	return s.client, nil
}

// reset drops the cached session after the provider rejected it.
func (s *Source) reset() {
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
}

// ActivitiesSince lists activities newer than the given instant, logging in
// on demand and once more when the cached session has gone stale.
func (s *Source) ActivitiesSince(ctx context.Context, since time.Time) ([]Activity, error) {
	c, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	acts, err := c.ActivitiesSince(ctx, since)
	if err != nil {
		s.reset()
		c, err = s.getClient(ctx)
		if err != nil {
			return nil, err
		}
		return c.ActivitiesSince(ctx, since)
	}
	return acts, nil
}
