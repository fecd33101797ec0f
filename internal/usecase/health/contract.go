package health

import "context"

// Pinger checks catalog store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks a remote provider (embedding, generation).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
