package ai

import (
	"errors"
	"strings"
)

// ErrUnavailable marks a provider that is not configured (missing key, no
// endpoint). Callers treat it like any other non-quota failure.
var ErrUnavailable = errors.New("ai provider unavailable")

var quotaMarkers = []string{
	"429",
	"quota",
	"resource has been exhausted",
	"resource_exhausted",
	"rate limit",
}

// IsQuotaError reports whether err signals upstream quota/rate exhaustion.
// The upstream SDKs surface these as string-typed API errors, so matching on
// the well-known markers is the only portable classification.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
