package patterns

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/snarlhq/snarl/internal/graph"
)

// chainWithDead builds a reachable chain of the given length plus dead
// self-loop nodes. Self-loops have in-degree one, so they are never inferred
// as roots and stay unreachable.
func chainWithDead(reachable, dead int) *graph.Snapshot {
	var ids []string
	var edges [][2]string
	for i := 0; i < reachable; i++ {
		ids = append(ids, fmt.Sprintf("r%03d", i))
		if i > 0 {
			edges = append(edges, [2]string{fmt.Sprintf("r%03d", i-1), fmt.Sprintf("r%03d", i)})
		}
	}
	for i := 0; i < dead; i++ {
		id := fmt.Sprintf("u%02d", i)
		ids = append(ids, id)
		edges = append(edges, [2]string{id, id})
	}
	return makeSnapshot(ids, edges)
}

func TestDetectDeadCode_AllReachable(t *testing.T) {
	snap := makeSnapshot([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	found, note, err := detectDeadCode(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note != "" {
		t.Errorf("expected no note, got %q", note)
	}
	if len(found) != 0 {
		t.Errorf("expected no dead code, got %d findings", len(found))
	}
}

func TestDetectDeadCode_UnreachableDetected(t *testing.T) {
	// a->b reachable from inferred root a; the c/d cycle has no in-degree
	// zero member so nothing reaches it.
	snap := makeSnapshot([]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"c", "d"}, {"d", "c"}})
	found, note, err := detectDeadCode(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note != "" {
		t.Errorf("expected no note, got %q", note)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 aggregated finding, got %d", len(found))
	}

	p := found[0]
	if p.Type != PatternDead {
		t.Errorf("expected dead_code, got %s", p.Type)
	}
	if p.Dead == nil {
		t.Fatal("expected dead code detail")
	}
	if len(p.Dead.UnreachableNodes) != 2 || p.Dead.UnreachableNodes[0] != "c" || p.Dead.UnreachableNodes[1] != "d" {
		t.Errorf("expected unreachable [c d], got %v", p.Dead.UnreachableNodes)
	}
	if len(p.Dead.Roots) != 1 || p.Dead.Roots[0] != "a" {
		t.Errorf("expected roots [a], got %v", p.Dead.Roots)
	}
	if p.Description != "2 of 4 nodes are unreachable from 1 root node(s)" {
		t.Errorf("unexpected description: %s", p.Description)
	}
	if p.Metadata["roots_inferred"] != "true" {
		t.Errorf("expected roots_inferred=true, got %s", p.Metadata["roots_inferred"])
	}
	if p.Metadata["unreachable_ratio"] != "0.50" {
		t.Errorf("expected ratio 0.50, got %s", p.Metadata["unreachable_ratio"])
	}
}

func TestDetectDeadCode_SeverityBands(t *testing.T) {
	cases := []struct {
		name      string
		reachable int
		dead      int
		want      Severity
	}{
		{"under ten percent", 20, 1, SeverityInfo},
		{"exactly ten percent", 18, 2, SeverityWarning},
		{"exactly forty percent", 6, 4, SeverityWarning},
		{"over forty percent", 5, 5, SeverityError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, _, err := detectDeadCode(context.Background(), chainWithDead(tc.reachable, tc.dead), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(found) != 1 {
				t.Fatalf("expected 1 finding, got %d", len(found))
			}
			if found[0].Severity != tc.want {
				t.Errorf("%d dead of %d: expected %s, got %s",
					tc.dead, tc.reachable+tc.dead, tc.want, found[0].Severity)
			}
		})
	}
}

func TestDetectDeadCode_NoRoots_Note(t *testing.T) {
	// Every node in the cycle has an incoming edge; there is nothing to
	// infer a root from.
	snap := makeSnapshot([]string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
	found, note, err := detectDeadCode(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no finding without roots, got %d", len(found))
	}
	if note != "no root nodes: every node has incoming edges, reachability not computed" {
		t.Errorf("unexpected note: %q", note)
	}
}

func TestDetectDeadCode_ExplicitRoots(t *testing.T) {
	snap := makeSnapshot([]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"c", "d"}, {"d", "c"}})
	found, _, err := detectDeadCode(context.Background(), snap, []string{"c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(found))
	}

	p := found[0]
	if len(p.Dead.UnreachableNodes) != 2 || p.Dead.UnreachableNodes[0] != "a" || p.Dead.UnreachableNodes[1] != "b" {
		t.Errorf("expected unreachable [a b], got %v", p.Dead.UnreachableNodes)
	}
	if len(p.Dead.Roots) != 1 || p.Dead.Roots[0] != "c" {
		t.Errorf("expected roots [c], got %v", p.Dead.Roots)
	}
	if p.Metadata["roots_inferred"] != "false" {
		t.Errorf("expected roots_inferred=false, got %s", p.Metadata["roots_inferred"])
	}
}

func TestDetectDeadCode_MissingExplicitRootDropped(t *testing.T) {
	snap := makeSnapshot([]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"c", "d"}, {"d", "c"}})
	found, _, err := detectDeadCode(context.Background(), snap, []string{"c", "nope"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(found))
	}
	if len(found[0].Dead.Roots) != 1 || found[0].Dead.Roots[0] != "c" {
		t.Errorf("expected the unknown root dropped, got %v", found[0].Dead.Roots)
	}
}

func TestDetectDeadCode_AllExplicitRootsMissing(t *testing.T) {
	snap := makeSnapshot([]string{"a", "b"}, [][2]string{{"a", "b"}})
	found, note, err := detectDeadCode(context.Background(), snap, []string{"nope"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no finding, got %d", len(found))
	}
	if note != "no root nodes: none of the configured roots exist in the graph, reachability not computed" {
		t.Errorf("unexpected note: %q", note)
	}
}

func TestDetectDeadCode_DuplicateExplicitRoots(t *testing.T) {
	snap := makeSnapshot([]string{"a", "b", "c"}, [][2]string{{"a", "b"}})
	found, _, err := detectDeadCode(context.Background(), snap, []string{"a", "a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(found))
	}
	if len(found[0].Dead.Roots) != 2 {
		t.Errorf("expected deduplicated roots [a b], got %v", found[0].Dead.Roots)
	}
}

func TestDetectDeadCode_EmptyGraph(t *testing.T) {
	found, note, err := detectDeadCode(context.Background(), makeSnapshot(nil, nil), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 0 || note != "" {
		t.Errorf("expected nothing for an empty graph, got %d findings, note %q", len(found), note)
	}
}

func TestDetectDeadCode_StableID(t *testing.T) {
	snap := chainWithDead(5, 5)

	first, _, _ := detectDeadCode(context.Background(), snap, nil)
	second, _, _ := detectDeadCode(context.Background(), snap, nil)
	if first[0].ID != second[0].ID {
		t.Errorf("expected stable ID across runs, got %s and %s", first[0].ID, second[0].ID)
	}

	// A different root set is a different finding.
	other, _, _ := detectDeadCode(context.Background(), snap, []string{"r000", "u00"})
	if len(other) == 1 && other[0].ID == first[0].ID {
		t.Error("findings under different root sets should have different IDs")
	}
}

func TestDetectDeadCode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A half-finished traversal would misreport reachability, so
	// cancellation yields no finding at all.
	found, note, err := detectDeadCode(ctx, chainWithDead(5, 2), nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(found) != 0 || note != "" {
		t.Errorf("expected no partial output, got %d findings, note %q", len(found), note)
	}
}
