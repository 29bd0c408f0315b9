package fitrelay

import "fmt"

// APIError is returned when the fitrelay API responds with a non-success
// status, or with a plain-text notice where a listing was expected.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fitrelay: HTTP %d: %s", e.StatusCode, e.Message)
}
