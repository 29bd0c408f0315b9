package upload

import (
	"errors"
	"fmt"
)

// ErrInvalidActivityType is returned before any network call when the
// requested activity type is outside the provider's fixed set.
var ErrInvalidActivityType = errors.New("invalid activity type")

// activityTypes is the provider's enumerated set of accepted activity
// types. Anything else is rejected locally; the provider would refuse it
// anyway, so the round trip is not worth making.
var activityTypes = map[string]struct{}{
	"ride": {}, "run": {}, "swim": {}, "workout": {}, "hike": {},
	"walk": {}, "nordicski": {}, "alpineski": {}, "backcountryski": {},
	"iceskate": {}, "inlineskate": {}, "kitesurf": {}, "rollerski": {},
	"windsurf": {}, "snowboard": {}, "snowshoe": {},
}

// Metadata describes the activity being uploaded.
type Metadata struct {
	Title        string
	Description  string
	Private      bool
	ActivityType string
}

// Validate checks the metadata locally. It must be called before any
// provider traffic.
func (m Metadata) Validate() error {
	if _, ok := activityTypes[m.ActivityType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidActivityType, m.ActivityType)
	}
	return nil
}
