package aiprovider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitErrorMatchesMarkers(t *testing.T) {
	cases := []string{
		"HTTP 429: rate limit exceeded",
		"Too Many Requests",
		"quota exceeded for this month",
		"tokens per minute limit reached",
		"RPM limit exceeded",
		"TPM cap hit",
		"RateLimitError: slow down",
	}
	for _, msg := range cases {
		assert.True(t, IsRateLimitError(errors.New(msg)), msg)
	}
}

func TestIsRateLimitErrorRejectsOtherErrors(t *testing.T) {
	assert.False(t, IsRateLimitError(errors.New("invalid api key")))
	assert.False(t, IsRateLimitError(nil))
}
