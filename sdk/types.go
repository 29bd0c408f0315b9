package fitrelay

import "time"

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// --- Upload ---

// UploadRequest asks the server to upload an activity file. Filename is a
// path on the server host; the server classifies the file by content.
type UploadRequest struct {
	Filename     string `json:"filename"`
	Title        string `json:"title"`
	ActivityType string `json:"activity_type"`
	Description  string `json:"description,omitempty"`
	Private      bool   `json:"private,omitempty"`
}

// --- Activities ---

// Activity is one recorded provider activity.
type Activity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"start_date"`
	Distance  float64   `json:"distance"`
}

// GarminActivity is one activity listed from Garmin Connect.
type GarminActivity struct {
	ActivityID   int64  `json:"activityId"`
	ActivityName string `json:"activityName"`
	StartTimeGMT string `json:"startTimeGMT"`
}

// StartTime parses the Garmin "2006-01-02 15:04:05" GMT timestamp.
func (a GarminActivity) StartTime() (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", a.StartTimeGMT)
}
