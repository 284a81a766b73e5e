package collector

import (
	"errors"
	"syscall"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/ratelimit"
)

// Classify maps a provider call result onto a limiter outcome.
//
// The quote host signals throttling two ways: an explicit status code, or
// by resetting the connection mid-request. Both count as rate limited.
// Everything else (timeouts, malformed payloads, 5xx) is an ordinary error
// that must not trigger boundary discovery.
func Classify(err error) ratelimit.Outcome {
	if err == nil {
		return ratelimit.OutcomeSuccess
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.IsRateLimit() {
		return ratelimit.OutcomeRateLimited
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return ratelimit.OutcomeRateLimited
	}

	return ratelimit.OutcomeOtherError
}

// Classify satisfies ratelimit.Classifier.
var _ ratelimit.Classifier = Classify
