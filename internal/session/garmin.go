package session

import (
	"net/http"
	"net/url"
	"time"
)

// GarminScript is the login choreography for Garmin Connect SSO. The marker
// strings track Garmin's login page wording; when Garmin changes them the
// classifier tests fail loudly rather than misreporting the failure.
func GarminScript(hopLimit int, hopDelay time.Duration) Script {
	return Script{
		LoginURL: "https://sso.garmin.com/sso/signin",
		LoginParams: url.Values{
			"service":              {"https://connect.garmin.com/modern"},
			"clientId":             {"GarminConnect"},
			"gauthHost":            {"https://sso.garmin.com/sso"},
			"consumeServiceTicket": {"false"},
		},
		UsernameField: "username",
		PasswordField: "password",
		ExtraFields: url.Values{
			"_eventId": {"submit"},
			"embed":    {"true"},
		},
		SubmitHeaders: http.Header{
			"Origin": {"https://sso.garmin.com"},
		},
		FailureMarkers: []FailureMarker{
			{Marker: "temporarily unavailable", Reason: ReasonTransientProvider},
			{Marker: ">sendEvent('FAIL')", Reason: ReasonInvalidCredentials},
			{Marker: ">sendEvent('ACCOUNT_LOCKED')", Reason: ReasonAccountLocked},
			{Marker: "renewPassword", Reason: ReasonPasswordResetRequired},
		},
		ServiceURL: "https://connect.garmin.com/modern",
		HopLimit:   hopLimit,
		HopDelay:   hopDelay,
		SessionHeaders: http.Header{
			"Referer": {"https://sync.tapiriik.com"},
		},
	}
}
