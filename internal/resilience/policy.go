// Package resilience wraps outbound calls with bounded retries and a
// per-operation circuit breaker.
package resilience

import (
	"time"

	"github.com/kailas-cloud/souq/internal/config"
)

// Policy configures an Executor.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Multiplier  float64

	BreakerEnabled      bool
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
	BreakerHalfOpenMax  uint32
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
		Multiplier:  2,

		BreakerEnabled:      true,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerOpenTimeout:  30 * time.Second,
		BreakerHalfOpenMax:  1,
	}
}

// PolicyFromConfig maps the resilience config section onto a Policy.
// MaxRetries counts retries after the first attempt.
func PolicyFromConfig(c config.ResilienceConfig) Policy {
	return Policy{
		MaxAttempts:         c.MaxRetries + 1,
		BaseBackoff:         config.Duration(c.BaseBackoffMS),
		MaxBackoff:          config.Duration(c.MaxBackoffMS),
		Multiplier:          2,
		BreakerEnabled:      c.BreakerFailures > 0,
		BreakerMinRequests:  c.BreakerFailures,
		BreakerFailureRatio: c.BreakerFailRatio,
		BreakerOpenTimeout:  time.Duration(c.BreakerOpenSec) * time.Second,
		BreakerHalfOpenMax:  1,
	}.normalize()
}

func (p Policy) normalize() Policy {
	out := p
	def := DefaultPolicy()

	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 1
	}
	if out.BaseBackoff <= 0 {
		out.BaseBackoff = def.BaseBackoff
	}
	if out.MaxBackoff < out.BaseBackoff {
		out.MaxBackoff = out.BaseBackoff
	}
	if out.Multiplier < 1 {
		out.Multiplier = def.Multiplier
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMax == 0 {
		out.BreakerHalfOpenMax = def.BreakerHalfOpenMax
	}
	return out
}
