package health

import "context"

// Pinger checks a storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexChecker reports whether the catalog search indexes exist.
type IndexChecker interface {
	Ready(ctx context.Context) (bool, error)
}
