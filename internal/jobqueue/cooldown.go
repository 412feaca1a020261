package jobqueue

import (
	"math"
	"time"
)

// cooldown computes the exponential backoff a failed job waits before it's
// eligible for redequeue,
// mirroring internal/aiprovider.Retrier's envelope without the jitter term —
// the job queue's cooldown only needs to spread retries, not desynchronize
// many clients hitting one rate-limited endpoint.
const (
	cooldownBase = 30 * time.Second
	cooldownCap  = 30 * time.Minute
)

// cooldownFor returns how long a job at retries (post-increment) must wait
// before becoming eligible again.
func cooldownFor(retries int) time.Duration {
	scaled := float64(cooldownBase) * math.Pow(2, float64(retries))
	capped := math.Min(scaled, float64(cooldownCap))
	return time.Duration(capped)
}
