// Package health aggregates readiness probes for /health.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider is failing; retrieval answers with fewer results.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names.
const (
	CheckCatalog    = "catalog"
	CheckEmbedding  = "embedding"
	CheckGeneration = "generation"
)

const defaultProbeTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type probe struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	probes  []probe
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Service. embedding and generation can be nil.
func New(catalog Pinger, embedding, generation ProviderChecker, logger *zap.Logger) *Service {
	s := &Service{timeout: defaultProbeTimeout, logger: logger}
	s.probes = append(s.probes, probe{name: CheckCatalog, critical: true, check: catalog.Ping})
	if embedding != nil {
		s.probes = append(s.probes, probe{name: CheckEmbedding, check: embedding.HealthCheck})
	}
	if generation != nil {
		s.probes = append(s.probes, probe{name: CheckGeneration, check: generation.HealthCheck})
	}
	return s
}

// WithTimeout sets the per-probe deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all probes concurrently. A failing catalog makes the service
// unhealthy; a failing provider only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]error, len(s.probes))

	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = p.check(pctx)
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(s.probes))
	status := Healthy
	for i, p := range s.probes {
		if results[i] == nil {
			checks[p.name] = CheckOK
			continue
		}
		checks[p.name] = CheckError
		s.logger.Warn("Health probe failed", zap.String("component", p.name), zap.Error(results[i]))
		if p.critical {
			status = Unhealthy
		} else if status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
