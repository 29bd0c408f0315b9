package oauth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Fitbit Web API OAuth endpoints.
var fitbitEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.fitbit.com/oauth2/authorize",
	TokenURL: "https://api.fitbit.com/oauth2/token",
}

type FitbitProvider struct {
	config *oauth2.Config
}

// NewFitbitProvider creates a Fitbit OAuth2 provider scoped to activity and
// heart rate data.
func NewFitbitProvider(clientID, clientSecret, redirectURL string) *FitbitProvider {
	return &FitbitProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"activity", "heartrate", "weight"},
			Endpoint:     fitbitEndpoint,
		},
	}
}

func (f *FitbitProvider) AuthURL(state string) string {
	return f.config.AuthCodeURL(state)
}

func (f *FitbitProvider) Exchange(ctx context.Context, code string) (*Token, error) {
	t, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fitbit token exchange: %w", err)
	}
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        strings.Join(f.config.Scopes, " "),
		Expiry:       t.Expiry,
	}, nil
}

func (f *FitbitProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := f.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	t, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("fitbit token refresh: %w", err)
	}
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        strings.Join(f.config.Scopes, " "),
		Expiry:       t.Expiry,
	}, nil
}
