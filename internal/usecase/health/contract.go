package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks a model provider (embedding or chat completion).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
