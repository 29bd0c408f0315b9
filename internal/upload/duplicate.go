package upload

import (
	"strconv"
	"strings"
)

// ParseDuplicate recognizes the provider's duplicate-submission failure
// message, whose trailing tokens are "... duplicate of activity <id>", and
// extracts the existing activity id. The wording is the provider's
// contract; if it drifts, the tests pinned to the literal strings fail
// rather than duplicates being misreported as errors.
func ParseDuplicate(msg string) (int64, bool) {
	words := strings.Fields(msg)
	if len(words) < 4 {
		return 0, false
	}
	tail := words[len(words)-4:]
	if tail[0] != "duplicate" || tail[1] != "of" || tail[2] != "activity" {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.Trim(tail[3], `'"().,`), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
