// Package memory provides an in-memory graph adapter, backing the file graph
// source and the test suites.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/snarlhq/snarl/internal/graph"
)

// Adapter serves a fixed node/edge set from memory. Ordering is normalized at
// construction so reads are deterministic regardless of input order.
type Adapter struct {
	nodes []graph.Node
	edges []graph.Edge
	out   map[string][]graph.Edge
	in    map[string][]graph.Edge
}

var _ graph.Adapter = (*Adapter)(nil)

// New creates an adapter over copies of the given nodes and edges.
func New(nodes []graph.Node, edges []graph.Edge) *Adapter {
	a := &Adapter{
		nodes: append([]graph.Node(nil), nodes...),
		edges: append([]graph.Edge(nil), edges...),
		out:   make(map[string][]graph.Edge),
		in:    make(map[string][]graph.Edge),
	}
	sort.Slice(a.nodes, func(i, j int) bool { return a.nodes[i].ID < a.nodes[j].ID })
	sort.Slice(a.edges, func(i, j int) bool {
		x, y := a.edges[i], a.edges[j]
		if x.From != y.From {
			return x.From < y.From
		}
		if x.To != y.To {
			return x.To < y.To
		}
		return x.Type < y.Type
	})
	for _, e := range a.edges {
		a.out[e.From] = append(a.out[e.From], e)
		a.in[e.To] = append(a.in[e.To], e)
	}
	return a
}

// LoadFile reads a graph document ({"nodes": [...], "edges": [...]}) from a
// JSON file.
func LoadFile(path string) (*Adapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, graph.NewAdapterError("load graph file", err)
	}
	var doc graph.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, graph.NewAdapterError("parse graph file", fmt.Errorf("%s: %w", path, err))
	}
	return New(doc.Nodes, doc.Edges), nil
}

// GetAllNodes returns every node in ascending ID order.
func (a *Adapter) GetAllNodes(ctx context.Context) ([]graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, graph.NewAdapterError("get all nodes", err)
	}
	return append([]graph.Node(nil), a.nodes...), nil
}

// GetAllEdges returns every edge ordered by (from, to, type).
func (a *Adapter) GetAllEdges(ctx context.Context) ([]graph.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, graph.NewAdapterError("get all edges", err)
	}
	return append([]graph.Edge(nil), a.edges...), nil
}

// GetEdgesFrom returns the outgoing edges of a node.
func (a *Adapter) GetEdgesFrom(ctx context.Context, nodeID string) ([]graph.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, graph.NewAdapterError("get edges from", err)
	}
	return append([]graph.Edge(nil), a.out[nodeID]...), nil
}

// GetEdgesTo returns the incoming edges of a node.
func (a *Adapter) GetEdgesTo(ctx context.Context, nodeID string) ([]graph.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, graph.NewAdapterError("get edges to", err)
	}
	return append([]graph.Edge(nil), a.in[nodeID]...), nil
}

// HasPath reports whether a directed path exists, via breadth-first search.
func (a *Adapter) HasPath(ctx context.Context, fromID, toID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, graph.NewAdapterError("has path", err)
	}
	if fromID == toID {
		return true, nil
	}
	visited := map[string]bool{fromID: true}
	queue := []string{fromID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range a.out[cur] {
			if e.To == toID {
				return true, nil
			}
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return false, nil
}

// Close is a no-op for the in-memory adapter.
func (a *Adapter) Close(ctx context.Context) error { return nil }
