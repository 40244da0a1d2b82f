package patterns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snarlhq/snarl/internal/graph"
)

// detectCircular enumerates elementary cycles with an iterative depth-first
// search. An explicit frame stack (not call-stack recursion) keeps graphs with
// thousands of nodes from blowing the stack. A traversal edge that lands on a
// node already on the current path closes a cycle: the path suffix from that
// node to the top. Traversal never continues past a back edge, and rotations
// of an already-reported cycle are deduplicated by normalizing every cycle to
// start at its smallest node ID.
func detectCircular(ctx context.Context, snap *graph.Snapshot) ([]DetectedPattern, error) {
	var found []DetectedPattern
	reported := make(map[string]bool)
	visited := make(map[string]bool)

	type frame struct {
		node string
		next int
	}

	for _, root := range snap.NodeIDs() {
		if err := ctx.Err(); err != nil {
			return found, ErrCancelled
		}
		if visited[root] {
			continue
		}

		visited[root] = true
		stack := []frame{{node: root}}
		path := []string{root}
		onPath := map[string]int{root: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := snap.OutEdges(top.node)

			if top.next >= len(edges) {
				delete(onPath, top.node)
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}

			e := edges[top.next]
			top.next++

			if pos, ok := onPath[e.To]; ok {
				cycle := append(append([]string(nil), path[pos:]...), e.To)
				norm := normalizeCycle(cycle)
				key := strings.Join(norm, "\x1f")
				if !reported[key] {
					reported[key] = true
					found = append(found, newCircularPattern(snap, norm))
				}
				continue
			}
			if visited[e.To] {
				continue
			}

			visited[e.To] = true
			onPath[e.To] = len(path)
			path = append(path, e.To)
			stack = append(stack, frame{node: e.To})
		}
	}

	return found, nil
}

// normalizeCycle rotates a closed cycle (first element repeated at the end) so
// it starts at its lexicographically smallest node.
func normalizeCycle(closed []string) []string {
	nodes := closed[:len(closed)-1]
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(nodes)+1)
	out = append(out, nodes[minIdx:]...)
	out = append(out, nodes[:minIdx]...)
	return append(out, out[0])
}

func newCircularPattern(snap *graph.Snapshot, cycle []string) DetectedPattern {
	length := len(cycle) - 1
	nodes := append([]string(nil), cycle[:length]...)

	var edges []graph.Edge
	for i := 0; i < length; i++ {
		from, to := cycle[i], cycle[i+1]
		for _, e := range snap.OutEdges(from) {
			if e.To == to {
				edges = append(edges, e)
				break
			}
		}
	}

	desc := fmt.Sprintf("Circular dependency through %d nodes: %s", length, strings.Join(cycle, " -> "))
	if length == 1 {
		desc = fmt.Sprintf("Node %q depends on itself", cycle[0])
	}

	return DetectedPattern{
		ID:          patternID("cycle", "circular|"+strings.Join(cycle, ",")),
		Type:        PatternCircular,
		Severity:    cycleSeverity(length),
		Description: desc,
		Nodes:       nodes,
		Edges:       edges,
		DetectedAt:  time.Now().UTC(),
		Circular: &CircularDetail{
			Cycle:  cycle,
			Length: length,
		},
	}
}

// cycleSeverity grades a cycle by its length: short cycles are routine
// refactors, long ones span too much of the graph to untangle safely.
func cycleSeverity(length int) Severity {
	switch {
	case length <= 3:
		return SeverityWarning
	case length <= 6:
		return SeverityError
	default:
		return SeverityCritical
	}
}
