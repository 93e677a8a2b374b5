package oidc

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var maxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

// RemainingLifetime computes how many seconds a fetched document stays
// valid according to its HTTP caching headers: the Cache-Control max-age
// directive minus the Age of the cached copy. The second return value is
// false when either header is missing or not numeric, in which case the
// caller should fall back to its own refresh interval.
//
// The result may be zero or negative; that means the document is already
// stale and should be refreshed immediately. The value is only ever used
// to pick a refresh delay, never to reject a document.
func RemainingLifetime(header http.Header) (int64, bool) {
	match := maxAgePattern.FindStringSubmatch(header.Get("Cache-Control"))
	if match == nil {
		return 0, false
	}
	maxAge, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}

	age, err := strconv.ParseInt(strings.TrimSpace(header.Get("Age")), 10, 64)
	if err != nil {
		return 0, false
	}

	return maxAge - age, true
}
