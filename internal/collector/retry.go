package collector

import (
	"math/rand"
	"time"
)

const maxRetryBackoff = 30 * time.Second

// backoffDelay returns the wait before retry number attempt (1-based):
// exponential on the base, capped, with ±20% jitter so parallel workers
// retrying the same blip spread out.
func backoffDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryBackoff {
			d = maxRetryBackoff
			break
		}
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(float64(d) * jitter)
}
