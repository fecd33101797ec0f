// Package metrics holds the Prometheus collectors and the HTTP middleware.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// Register adds every collector to reg. Safe to call more than once; only
// the first call registers. Must be called from main.
func Register(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		all := make([]prometheus.Collector, 0, 24)
		all = append(all, embeddingCollectors()...)
		all = append(all, retrievalCollectors()...)
		all = append(all, recommendCollectors()...)
		all = append(all, ingestCollectors()...)
		all = append(all, httpRequestDuration, httpRequestsTotal, httpRequestsInFlight)
		for _, c := range all {
			if err := reg.Register(c); err != nil {
				registerErr = fmt.Errorf("register collector: %w", err)
				return
			}
		}
	})
	return registerErr
}
