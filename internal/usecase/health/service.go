// Package health aggregates dependency checks for the health endpoint.
package health

import (
	"context"
	"errors"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

var errIndexMissing = errors.New("search index missing")

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Failed lists the failing components in name order.
func (r Report) Failed() []string {
	var out []string
	for name, res := range r.Checks {
		if res == CheckError {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

type check struct {
	name string
	fn   func(context.Context) error
}

// Service coordinates health checks.
type Service struct {
	checks []check
}

// New creates a Service with the storage and embedding checks. Nil
// dependencies are skipped.
func New(redis, postgres Pinger, embedding EmbeddingChecker) *Service {
	s := &Service{}
	if redis != nil {
		s.add("redis", redis.Ping)
	}
	if postgres != nil {
		s.add("postgres", postgres.Ping)
	}
	if embedding != nil {
		s.add("embedding", embedding.HealthCheck)
	}
	return s
}

// WithIndexes adds a check that the catalog search indexes exist.
func (s *Service) WithIndexes(idx IndexChecker) *Service {
	s.add("search_index", func(ctx context.Context) error {
		ok, err := idx.Ready(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errIndexMissing
		}
		return nil
	})
	return s
}

func (s *Service) add(name string, fn func(context.Context) error) {
	s.checks = append(s.checks, check{name: name, fn: fn})
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy

	for _, c := range s.checks {
		if err := c.fn(ctx); err != nil {
			checks[c.name] = CheckError
			status = Degraded
			continue
		}
		checks[c.name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
