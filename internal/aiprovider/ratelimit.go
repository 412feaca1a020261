package aiprovider

import (
	"errors"
	"fmt"
	"strings"
)

// rateLimitMarkers are the error-type-name-or-message substrings treated
// as a rate-limit signal, matched case-insensitively.
var rateLimitMarkers = []string{
	"rate limit",
	"too many requests",
	"quota exceeded",
	"tokens per minute",
	"rpm",
	"tpm",
	"ratelimiterror",
}

// IsRateLimitError reports whether err's message, or the dynamic type name
// of err or of any error it wraps, matches one of the rate-limit markers.
// This package has no dependency on any provider SDK's error types, so it
// sniffs text rather than doing a type assertion.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg += " " + strings.ToLower(fmt.Sprintf("%T", e))
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
