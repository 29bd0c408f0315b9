package fitrelay_test

import (
	"context"
	"fmt"
	"log"
	"time"

	fitrelay "github.com/gsarma/fitrelay/sdk"
)

func Example_basicUsage() {
	ctx := context.Background()
	client := fitrelay.New("http://localhost:8080")

	// --- Authorize (one-time, in a browser) ---
	fmt.Println("Open to authorize:", client.AuthorizeURL("strava"))

	// --- Upload an activity file on the server host ---
	msg, err := client.Upload(ctx, fitrelay.UploadRequest{
		Filename:     "/data/morning.tcx",
		Title:        "Morning Run",
		ActivityType: "run",
		Description:  "Easy 5k along the river",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(msg)

	// --- List last week's activities ---
	acts, err := client.Activities(ctx, time.Now().AddDate(0, 0, -7), time.Now())
	if err != nil {
		log.Fatal(err)
	}
	for _, a := range acts {
		fmt.Println(a.Name, a.StartDate)
	}
}

func Example_garmin() {
	ctx := context.Background()
	client := fitrelay.New("http://localhost:8080")

	acts, err := client.GarminActivities(ctx, time.Now().AddDate(0, -1, 0))
	if err != nil {
		log.Fatal(err)
	}
	for _, a := range acts {
		fmt.Println(a.ActivityName, a.StartTimeGMT)
	}
}
