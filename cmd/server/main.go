package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/fitrelay/internal/api"
	"github.com/gsarma/fitrelay/internal/config"
	"github.com/gsarma/fitrelay/internal/credentials"
	"github.com/gsarma/fitrelay/internal/garmin"
	"github.com/gsarma/fitrelay/internal/oauth"
	"github.com/gsarma/fitrelay/internal/session"
	"github.com/gsarma/fitrelay/internal/strava"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := credentials.NewFileStore(cfg.TokenDir)
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}

	// Seed client registrations from the environment so the stored record
	// always carries them alongside whatever tokens get exchanged later.
	seedRegistration(store, "strava", cfg.StravaClientID, cfg.StravaClientSecret)
	seedRegistration(store, "fitbit", cfg.FitbitClientID, cfg.FitbitClientSecret)

	providers := map[string]oauth.Provider{}
	if cfg.StravaClientID != "" {
		providers["strava"] = oauth.NewStravaProvider(
			cfg.StravaClientID, cfg.StravaClientSecret, cfg.BaseURL+"/callback")
	}
	if cfg.FitbitClientID != "" {
		providers["fitbit"] = oauth.NewFitbitProvider(
			cfg.FitbitClientID, cfg.FitbitClientSecret, cfg.BaseURL+"/callback")
	}
	broker := oauth.NewBroker(store, oauth.NewStateCodec(cfg.StateKey), providers)

	h := api.NewHandler(broker, store,
		func(accessToken string) api.ProviderAPI { return strava.New(accessToken) },
		cfg.UploadPollInterval, cfg.UploadTimeout)

	if cfg.GarminEmail != "" {
		est, err := session.NewEstablisher(
			session.GarminScript(cfg.RedirectHopLimit, cfg.RedirectHopDelay),
			cfg.GarminEmail, cfg.GarminPassword)
		if err != nil {
			log.Fatalf("garmin establisher: %v", err)
		}
		h.WithGarmin(garmin.NewSource(est))
	}

	router := gin.Default()
	api.RegisterRoutes(router, h)

	log.Printf("fitrelay listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func seedRegistration(store *credentials.FileStore, provider, clientID, clientSecret string) {
	if clientID == "" {
		return
	}
	cred, found, err := store.Load(provider)
	if err != nil {
		log.Fatalf("load %s credential: %v", provider, err)
	}
	if found && cred.ClientID == clientID && cred.ClientSecret == clientSecret {
		return
	}
	cred.Provider = provider
	cred.ClientID = clientID
	cred.ClientSecret = clientSecret
	if err := store.Save(cred); err != nil {
		log.Fatalf("save %s credential: %v", provider, err)
	}
}
