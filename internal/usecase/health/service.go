// Package health aggregates component checks for the /health endpoint.
package health

import "context"

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
	// CheckUnconfigured marks a provider that cannot run without credentials.
	CheckUnconfigured CheckResult = "unconfigured"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      IndexPinger
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service. Nil providers are reported as unconfigured.
func New(index IndexPinger, embedding, generation ProviderChecker) *Service {
	return &Service{index: index, embedding: embedding, generation: generation}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"index":      result(s.index != nil, func() error { return s.index.Ping(ctx) }),
		"embedding":  result(s.embedding != nil, func() error { return s.embedding.HealthCheck(ctx) }),
		"generation": result(s.generation != nil, func() error { return s.generation.HealthCheck(ctx) }),
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(present bool, check func() error) CheckResult {
	if !present {
		return CheckUnconfigured
	}
	if err := check(); err != nil {
		return CheckError
	}
	return CheckOK
}
