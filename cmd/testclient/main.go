// testclient drives a locally running fitrelay server for manual testing:
// it can open the authorize flow, upload an activity file, and list
// activities.
//
// Usage:
//
//	go run ./cmd/testclient -auth strava
//	go run ./cmd/testclient -upload /data/morning.tcx -title "Morning Run" -type run
//	go run ./cmd/testclient -list 2024-06-01
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "fitrelay server URL")
	auth := flag.String("auth", "", "print the authorize link for a provider")
	upload := flag.String("upload", "", "server-side path of an activity file to upload")
	title := flag.String("title", "", "activity title for -upload")
	actType := flag.String("type", "workout", "activity type for -upload")
	list := flag.String("list", "", "list activities since this date (YYYY-MM-DD)")
	flag.Parse()

	switch {
	case *auth != "":
		body := get(*server + "/auth?provider=" + url.QueryEscape(*auth))
		fmt.Println(body)
	case *upload != "":
		if *title == "" {
			log.Fatal("-upload requires -title")
		}
		req, _ := json.Marshal(map[string]any{
			"filename":      *upload,
			"title":         *title,
			"activity_type": *actType,
		})
		resp, err := http.Post(*server+"/", "application/json", bytes.NewReader(req))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("%d: %s\n", resp.StatusCode, body)
	case *list != "":
		fmt.Println(get(*server + "/activities?start_date=" + url.QueryEscape(*list)))
	default:
		flag.Usage()
	}
}

func get(u string) string {
	resp, err := http.Get(u)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("%d: %s", resp.StatusCode, body)
	}
	return string(body)
}
