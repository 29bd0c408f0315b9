package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings for the fitrelay server, sourced from
// the environment. Provider credentials are opaque strings here; the
// packages that consume them decide what they mean.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"FITRELAY_BASE_URL" envDefault:"http://localhost:8080"`

	// Directory holding one credential record file per provider.
	TokenDir string `env:"FITRELAY_TOKEN_DIR" envDefault:"."`

	// Key used to sign the OAuth state parameter. Independent of any
	// provider client secret so rotating one does not invalidate the other.
	StateKey string `env:"FITRELAY_STATE_KEY,required"`

	StravaClientID     string `env:"STRAVA_CLIENT_ID"`
	StravaClientSecret string `env:"STRAVA_CLIENT_SECRET"`
	FitbitClientID     string `env:"FITBIT_CLIENT_ID"`
	FitbitClientSecret string `env:"FITBIT_CLIENT_SECRET"`

	GarminEmail    string `env:"GARMIN_CONNECT_EMAIL"`
	GarminPassword string `env:"GARMIN_CONNECT_PASSWORD"`

	// Tuning knobs for the scripted login and the upload poll loop. The
	// defaults mirror the provider behavior these flows were calibrated
	// against; they are settings, not guesses to be hardcoded.
	RedirectHopLimit   int           `env:"FITRELAY_REDIRECT_HOP_LIMIT" envDefault:"7"`
	RedirectHopDelay   time.Duration `env:"FITRELAY_REDIRECT_HOP_DELAY" envDefault:"2s"`
	UploadPollInterval time.Duration `env:"FITRELAY_UPLOAD_POLL_INTERVAL" envDefault:"1s"`
	UploadTimeout      time.Duration `env:"FITRELAY_UPLOAD_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
