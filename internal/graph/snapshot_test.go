package graph

import (
	"context"
	"errors"
	"testing"
)

func TestNewSnapshot_SortsNodesAndEdges(t *testing.T) {
	snap := NewSnapshot(
		[]Node{{ID: "c"}, {ID: "a"}, {ID: "b"}},
		[]Edge{
			{From: "c", To: "a", Type: "x"},
			{From: "a", To: "b", Type: "x"},
			{From: "a", To: "b", Type: "w"},
		},
		nil, nil,
	)

	if snap.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", snap.NodeCount())
	}
	ids := snap.NodeIDs()
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("expected sorted IDs [a b c], got %v", ids)
	}

	edges := snap.Edges
	if edges[0].From != "a" || edges[0].Type != "w" {
		t.Errorf("expected a->b (w) first, got %+v", edges[0])
	}
	if edges[1].From != "a" || edges[1].Type != "x" {
		t.Errorf("expected a->b (x) second, got %+v", edges[1])
	}
	if edges[2].From != "c" {
		t.Errorf("expected c->a last, got %+v", edges[2])
	}
}

func TestNewSnapshot_DeduplicatesNodeIDs(t *testing.T) {
	snap := NewSnapshot(
		[]Node{{ID: "a", Type: "module"}, {ID: "a", Type: "other"}},
		nil, nil, nil,
	)
	if snap.NodeCount() != 1 {
		t.Fatalf("expected duplicate ID collapsed, got %d nodes", snap.NodeCount())
	}
	n, _ := snap.Node("a")
	if n.Type != "module" {
		t.Errorf("expected first occurrence kept, got type %s", n.Type)
	}
}

func TestNewSnapshot_ExcludesNodeTypes(t *testing.T) {
	snap := NewSnapshot(
		[]Node{
			{ID: "a", Type: "module"},
			{ID: "b", Type: "external"},
			{ID: "c", Type: "module"},
		},
		[]Edge{
			{From: "a", To: "b", Type: "depends_on"},
			{From: "b", To: "c", Type: "depends_on"},
			{From: "a", To: "c", Type: "depends_on"},
		},
		[]string{"external"}, nil,
	)

	if snap.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes after exclusion, got %d", snap.NodeCount())
	}
	if snap.HasNode("b") {
		t.Error("excluded node must not appear in the snapshot")
	}
	if snap.EdgeCount() != 1 {
		t.Errorf("expected only a->c to survive, got %d edges", snap.EdgeCount())
	}
	if snap.DroppedEdges != 2 {
		t.Errorf("expected 2 dropped edges, got %d", snap.DroppedEdges)
	}
}

func TestNewSnapshot_ExcludesEdgeTypes(t *testing.T) {
	snap := NewSnapshot(
		[]Node{{ID: "a"}, {ID: "b"}},
		[]Edge{
			{From: "a", To: "b", Type: "weak"},
			{From: "b", To: "a", Type: "strong"},
		},
		nil, []string{"weak"},
	)

	if snap.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", snap.EdgeCount())
	}
	if snap.Edges[0].Type != "strong" {
		t.Errorf("wrong edge survived: %+v", snap.Edges[0])
	}
	if snap.DroppedEdges != 1 {
		t.Errorf("expected 1 dropped edge, got %d", snap.DroppedEdges)
	}
	// Nodes isolated by edge exclusion stay in the snapshot.
	if snap.NodeCount() != 2 {
		t.Errorf("expected both nodes kept, got %d", snap.NodeCount())
	}
}

func TestNewSnapshot_DropsDanglingEdges(t *testing.T) {
	snap := NewSnapshot(
		[]Node{{ID: "a"}},
		[]Edge{
			{From: "a", To: "ghost", Type: "x"},
			{From: "ghost", To: "a", Type: "x"},
		},
		nil, nil,
	)
	if snap.EdgeCount() != 0 {
		t.Errorf("expected dangling edges dropped, got %d", snap.EdgeCount())
	}
	if snap.DroppedEdges != 2 {
		t.Errorf("expected 2 dropped edges, got %d", snap.DroppedEdges)
	}
}

func TestSnapshot_AdjacencyAndDegrees(t *testing.T) {
	snap := NewSnapshot(
		[]Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		[]Edge{
			{From: "a", To: "b", Type: "x"},
			{From: "a", To: "c", Type: "x"},
			{From: "b", To: "c", Type: "x"},
		},
		nil, nil,
	)

	if snap.OutDegree("a") != 2 {
		t.Errorf("expected out degree 2 for a, got %d", snap.OutDegree("a"))
	}
	if snap.InDegree("c") != 2 {
		t.Errorf("expected in degree 2 for c, got %d", snap.InDegree("c"))
	}
	if snap.InDegree("a") != 0 {
		t.Errorf("expected in degree 0 for a, got %d", snap.InDegree("a"))
	}

	out := snap.OutEdges("a")
	if len(out) != 2 || out[0].To != "b" || out[1].To != "c" {
		t.Errorf("expected ordered out edges [b c], got %v", out)
	}
	in := snap.InEdges("c")
	if len(in) != 2 || in[0].From != "a" || in[1].From != "b" {
		t.Errorf("expected ordered in edges [a b], got %v", in)
	}
}

func TestSnapshot_UnknownNodeLookups(t *testing.T) {
	snap := NewSnapshot([]Node{{ID: "a"}}, nil, nil, nil)

	if snap.HasNode("nope") {
		t.Error("unknown node should not be found")
	}
	if _, ok := snap.Node("nope"); ok {
		t.Error("unknown node lookup should report absence")
	}
	if snap.OutDegree("nope") != 0 || snap.InDegree("nope") != 0 {
		t.Error("unknown node should have zero degrees")
	}
	if snap.OutEdges("nope") != nil {
		t.Error("unknown node should have no edges")
	}
}

// stubAdapter feeds fixed data or a fixed error into BuildSnapshot.
type stubAdapter struct {
	nodes    []Node
	edges    []Edge
	nodesErr error
	edgesErr error
}

func (s *stubAdapter) GetAllNodes(ctx context.Context) ([]Node, error) {
	return s.nodes, s.nodesErr
}

func (s *stubAdapter) GetAllEdges(ctx context.Context) ([]Edge, error) {
	return s.edges, s.edgesErr
}

func (s *stubAdapter) GetEdgesFrom(ctx context.Context, nodeID string) ([]Edge, error) {
	return nil, nil
}

func (s *stubAdapter) GetEdgesTo(ctx context.Context, nodeID string) ([]Edge, error) {
	return nil, nil
}

func (s *stubAdapter) HasPath(ctx context.Context, fromID, toID string) (bool, error) {
	return false, nil
}

func (s *stubAdapter) Close(ctx context.Context) error { return nil }

func TestBuildSnapshot_FromAdapter(t *testing.T) {
	src := &stubAdapter{
		nodes: []Node{{ID: "a"}, {ID: "b"}},
		edges: []Edge{{From: "a", To: "b", Type: "x"}},
	}
	snap, err := BuildSnapshot(context.Background(), src, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.NodeCount() != 2 || snap.EdgeCount() != 1 {
		t.Errorf("expected 2 nodes and 1 edge, got %d and %d", snap.NodeCount(), snap.EdgeCount())
	}
}

func TestBuildSnapshot_WrapsPlainErrors(t *testing.T) {
	src := &stubAdapter{nodesErr: errors.New("boom")}
	_, err := BuildSnapshot(context.Background(), src, nil, nil)

	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("expected AdapterError, got %v", err)
	}
	if adapterErr.Op != "get all nodes" {
		t.Errorf("expected op recorded, got %s", adapterErr.Op)
	}
	if !errors.Is(err, adapterErr.Err) {
		t.Error("expected the cause preserved through Unwrap")
	}
}

func TestBuildSnapshot_KeepsTypedErrors(t *testing.T) {
	cause := NewAdapterError("session", errors.New("closed"))
	src := &stubAdapter{edgesErr: cause}
	_, err := BuildSnapshot(context.Background(), src, nil, nil)

	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("expected AdapterError, got %v", err)
	}
	if adapterErr != cause {
		t.Error("already-typed adapter errors must pass through unwrapped")
	}
}

func TestAdapterError_Message(t *testing.T) {
	err := NewAdapterError("get all nodes", errors.New("timeout"))
	want := "graph adapter: get all nodes: timeout"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	bare := &AdapterError{Op: "connect"}
	if bare.Error() != "graph adapter: connect failed" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}
