package patterns

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/snarlhq/snarl/internal/graph"
)

// detectDeadCode finds every node unreachable from the root set by
// breadth-first traversal over outgoing edges. All unreachable nodes are
// aggregated into a single pattern. When no roots are given and none can be
// inferred (no node has in-degree zero), the detector reports nothing and
// returns a note for the result metadata instead of failing.
func detectDeadCode(ctx context.Context, snap *graph.Snapshot, explicitRoots []string) ([]DetectedPattern, string, error) {
	if snap.NodeCount() == 0 {
		return nil, "", nil
	}

	roots, inferred := resolveRoots(snap, explicitRoots)
	if len(roots) == 0 {
		if len(explicitRoots) > 0 {
			return nil, "no root nodes: none of the configured roots exist in the graph, reachability not computed", nil
		}
		return nil, "no root nodes: every node has incoming edges, reachability not computed", nil
	}

	visited := make(map[string]bool, snap.NodeCount())
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if !visited[r] {
			visited[r] = true
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, "", ErrCancelled
		}
		cur := queue[0]
		queue = queue[1:]
		for _, e := range snap.OutEdges(cur) {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}

	var unreachable []string
	for _, id := range snap.NodeIDs() {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	if len(unreachable) == 0 {
		return nil, "", nil
	}

	total := snap.NodeCount()
	ratio := float64(len(unreachable)) / float64(total)

	key := "dead|" + strings.Join(unreachable, ",") + "|roots|" + strings.Join(roots, ",")
	pattern := DetectedPattern{
		ID:       patternID("deadcode", key),
		Type:     PatternDead,
		Severity: deadCodeSeverity(ratio),
		Description: fmt.Sprintf("%d of %d nodes are unreachable from %d root node(s)",
			len(unreachable), total, len(roots)),
		Nodes: unreachable,
		Metadata: map[string]string{
			"unreachable_ratio": fmt.Sprintf("%.2f", ratio),
			"roots_inferred":    fmt.Sprintf("%t", inferred),
		},
		DetectedAt: time.Now().UTC(),
		Dead: &DeadCodeDetail{
			UnreachableNodes: unreachable,
			Roots:            roots,
		},
	}
	return []DetectedPattern{pattern}, "", nil
}

// resolveRoots returns the sorted, deduplicated root set: the explicit roots
// when given, otherwise every node with no incoming edges. Explicit roots not
// present in the snapshot are dropped.
func resolveRoots(snap *graph.Snapshot, explicit []string) (roots []string, inferred bool) {
	if len(explicit) > 0 {
		seen := make(map[string]bool, len(explicit))
		for _, r := range explicit {
			if snap.HasNode(r) && !seen[r] {
				seen[r] = true
				roots = append(roots, r)
			}
		}
		sort.Strings(roots)
		return roots, false
	}
	for _, id := range snap.NodeIDs() {
		if snap.InDegree(id) == 0 {
			roots = append(roots, id)
		}
	}
	return roots, true
}

// deadCodeSeverity scales with the share of the graph that is unreachable.
func deadCodeSeverity(ratio float64) Severity {
	switch {
	case ratio < 0.10:
		return SeverityInfo
	case ratio <= 0.40:
		return SeverityWarning
	default:
		return SeverityError
	}
}
