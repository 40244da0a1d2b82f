package graph

import (
	"context"
	"fmt"
)

// Adapter supplies graph data for one analysis pass. Implementations back it
// with a graph database, a file, or plain memory; the engine only ever reads.
type Adapter interface {
	// GetAllNodes returns every node in a stable order.
	GetAllNodes(ctx context.Context) ([]Node, error)
	// GetAllEdges returns every edge in a stable order.
	GetAllEdges(ctx context.Context) ([]Edge, error)
	// GetEdgesFrom returns the outgoing edges of a node.
	GetEdgesFrom(ctx context.Context, nodeID string) ([]Edge, error)
	// GetEdgesTo returns the incoming edges of a node.
	GetEdgesTo(ctx context.Context, nodeID string) ([]Edge, error)
	// HasPath reports whether any directed path leads from one node to another.
	HasPath(ctx context.Context, fromID, toID string) (bool, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// AdapterError wraps a failure of the backing store. Snapshot acquisition
// surfaces it unmodified; nothing downstream retries.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("graph adapter: %s failed", e.Op)
	}
	return fmt.Sprintf("graph adapter: %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// NewAdapterError builds an AdapterError for the given operation.
func NewAdapterError(op string, err error) *AdapterError {
	return &AdapterError{Op: op, Err: err}
}
