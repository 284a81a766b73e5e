package ratelimit

// Outcome classifies the result of one protected remote call.
type Outcome int

const (
	// OutcomeSuccess means the call returned data.
	OutcomeSuccess Outcome = iota

	// OutcomeRateLimited means the upstream rejected the call because the
	// client exceeded its request budget. Only this outcome drives the
	// detector state machine.
	OutcomeRateLimited

	// OutcomeOtherError covers everything else (network failure, malformed
	// response). These count as failures for pacing but never trigger
	// discovery.
	OutcomeOtherError
)

// String returns the outcome name for logs and stats.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeOtherError:
		return "other_error"
	default:
		return "unknown"
	}
}

// Classifier maps an error from the remote call to an Outcome. The caller
// supplies one; the detector takes the classification as given and never
// inspects error payloads itself. A nil error must map to OutcomeSuccess.
type Classifier func(error) Outcome
