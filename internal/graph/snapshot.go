package graph

import (
	"context"
	"sort"
)

// Snapshot is the immutable view of a graph for one analysis pass. Exclusion
// filtering happens here, once, so every consumer sees the same graph; the
// derived adjacency and degree lookups are built a single time in linear
// passes over the edge list.
type Snapshot struct {
	Nodes []Node
	Edges []Edge

	// DroppedEdges counts edges removed by type exclusion or because an
	// endpoint was excluded or unknown.
	DroppedEdges int

	nodeIndex map[string]int
	out       map[string][]Edge
	in        map[string][]Edge
	ids       []string
}

// BuildSnapshot fetches the full graph from the adapter and assembles the
// filtered snapshot. Adapter failures abort the pass.
func BuildSnapshot(ctx context.Context, source Adapter, excludeNodeTypes, excludeEdgeTypes []string) (*Snapshot, error) {
	nodes, err := source.GetAllNodes(ctx)
	if err != nil {
		return nil, wrapAdapterErr("get all nodes", err)
	}
	edges, err := source.GetAllEdges(ctx)
	if err != nil {
		return nil, wrapAdapterErr("get all edges", err)
	}
	return NewSnapshot(nodes, edges, excludeNodeTypes, excludeEdgeTypes), nil
}

// NewSnapshot assembles a snapshot from in-memory data, applying the same
// filtering as BuildSnapshot. Input slices are not retained.
func NewSnapshot(nodes []Node, edges []Edge, excludeNodeTypes, excludeEdgeTypes []string) *Snapshot {
	nodeDrop := toSet(excludeNodeTypes)
	edgeDrop := toSet(excludeEdgeTypes)

	s := &Snapshot{
		nodeIndex: make(map[string]int),
		out:       make(map[string][]Edge),
		in:        make(map[string][]Edge),
	}

	for _, n := range nodes {
		if _, skip := nodeDrop[n.Type]; skip {
			continue
		}
		if _, dup := s.nodeIndex[n.ID]; dup {
			continue
		}
		s.nodeIndex[n.ID] = len(s.Nodes)
		s.Nodes = append(s.Nodes, n)
	}
	sort.Slice(s.Nodes, func(i, j int) bool { return s.Nodes[i].ID < s.Nodes[j].ID })
	for i, n := range s.Nodes {
		s.nodeIndex[n.ID] = i
		s.ids = append(s.ids, n.ID)
	}

	for _, e := range edges {
		if _, skip := edgeDrop[e.Type]; skip {
			s.DroppedEdges++
			continue
		}
		_, fromOK := s.nodeIndex[e.From]
		_, toOK := s.nodeIndex[e.To]
		if !fromOK || !toOK {
			s.DroppedEdges++
			continue
		}
		s.Edges = append(s.Edges, e)
	}
	sort.Slice(s.Edges, func(i, j int) bool {
		a, b := s.Edges[i], s.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})
	for _, e := range s.Edges {
		s.out[e.From] = append(s.out[e.From], e)
		s.in[e.To] = append(s.in[e.To], e)
	}

	return s
}

// NodeCount returns the number of nodes after filtering.
func (s *Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges after filtering.
func (s *Snapshot) EdgeCount() int { return len(s.Edges) }

// NodeIDs returns all node IDs in ascending order. Callers must not mutate
// the returned slice.
func (s *Snapshot) NodeIDs() []string { return s.ids }

// HasNode reports whether the snapshot contains the node.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.nodeIndex[id]
	return ok
}

// Node returns the node with the given ID.
func (s *Snapshot) Node(id string) (Node, bool) {
	i, ok := s.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return s.Nodes[i], true
}

// OutEdges returns the outgoing edges of a node, ordered by (to, type).
func (s *Snapshot) OutEdges(id string) []Edge { return s.out[id] }

// InEdges returns the incoming edges of a node, ordered by (from, type).
func (s *Snapshot) InEdges(id string) []Edge { return s.in[id] }

// OutDegree returns the number of outgoing edges of a node.
func (s *Snapshot) OutDegree(id string) int { return len(s.out[id]) }

// InDegree returns the number of incoming edges of a node.
func (s *Snapshot) InDegree(id string) int { return len(s.in[id]) }

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// wrapAdapterErr keeps already-typed adapter errors intact and types anything
// else the adapter leaked.
func wrapAdapterErr(op string, err error) error {
	if _, ok := err.(*AdapterError); ok {
		return err
	}
	return NewAdapterError(op, err)
}
