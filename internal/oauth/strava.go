package oauth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Strava v3 OAuth endpoints.
var stravaEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

type StravaProvider struct {
	config *oauth2.Config
}

// NewStravaProvider creates a Strava OAuth2 provider. The scopes cover both
// reading the athlete's activities and uploading new ones.
func NewStravaProvider(clientID, clientSecret, redirectURL string) *StravaProvider {
	return &StravaProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"activity:read_all", "activity:write"},
			Endpoint:     stravaEndpoint,
		},
	}
}

func (s *StravaProvider) AuthURL(state string) string {
	// Strava re-prompts on every visit unless approval_prompt is "auto".
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

func (s *StravaProvider) Exchange(ctx context.Context, code string) (*Token, error) {
	t, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("strava token exchange: %w", err)
	}
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        strings.Join(s.config.Scopes, ","),
		Expiry:       t.Expiry,
	}, nil
}

func (s *StravaProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	t, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("strava token refresh: %w", err)
	}
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        strings.Join(s.config.Scopes, ","),
		Expiry:       t.Expiry,
	}, nil
}
