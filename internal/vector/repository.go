// Package vector archives structural signatures of detected patterns and
// answers similarity queries against past runs: has a tangle shaped like this
// one been seen before.
package vector

import (
	"context"

	"github.com/snarlhq/snarl/internal/patterns"
)

// Match is a single hit from a similarity search.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Repository provides signature storage and similarity search.
type Repository interface {
	// EnsureCollection creates the backing collection when missing.
	EnsureCollection(ctx context.Context) error
	// UpsertResult archives a signature for every finding in the result and
	// returns the number of points written. Point IDs are derived from run
	// and finding, so re-archiving a run overwrites instead of duplicating.
	UpsertResult(ctx context.Context, runID string, result *patterns.Result) (int, error)
	// SearchSimilar returns the archived findings closest to the given one.
	SearchSimilar(ctx context.Context, pattern patterns.DetectedPattern, limit int) ([]Match, error)
	// Close releases resources.
	Close() error
}
