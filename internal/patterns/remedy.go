package patterns

import (
	"fmt"

	"github.com/snarlhq/snarl/internal/graph"
)

// remedyFunc builds the ranked suggestions for one pattern variant.
type remedyFunc func(snap *graph.Snapshot, p *DetectedPattern) []RemediationSuggestion

// remedyTable maps every pattern variant to its advisor. The table is total
// and the mapping is pure, so identical patterns always get identical advice.
var remedyTable = map[PatternType]remedyFunc{
	PatternCircular: adviseCircular,
	PatternOrphaned: adviseOrphan,
	PatternHub:      adviseHub,
	PatternDead:     adviseDead,
}

// Advise returns the ranked remediation suggestions for a pattern.
func Advise(snap *graph.Snapshot, p DetectedPattern) []RemediationSuggestion {
	fn, ok := remedyTable[p.Type]
	if !ok {
		return nil
	}
	return fn(snap, &p)
}

func adviseCircular(_ *graph.Snapshot, p *DetectedPattern) []RemediationSuggestion {
	length := p.Circular.Length
	return []RemediationSuggestion{
		{
			Action:      ActionRefactor,
			Description: fmt.Sprintf("Break the cycle of %d nodes by removing or inverting one of its edges", length),
			Steps: []string{
				"Identify the edge in the cycle with the fewest other dependents",
				"Invert or remove that dependency, extracting a shared component if both sides need it",
				"Re-run detection to confirm the cycle is gone",
			},
			Priority:    1,
			EffortHours: float64(length) * 2,
		},
		{
			Action:      ActionInvestigate,
			Description: "Check whether the cycle is intentional (e.g. a feedback loop) before restructuring",
			Priority:    2,
		},
	}
}

// entryPointTypes are node types treated as intentional graph boundaries by
// the orphan advisor.
var entryPointTypes = map[string]struct{}{
	"entry":      {},
	"entrypoint": {},
	"main":       {},
	"root":       {},
	"handler":    {},
	"api":        {},
}

// looksIntentional reports whether an isolated node is plausibly a deliberate
// entry or exit point: its type names one, or it is marked as an entry point
// or exported via attributes.
func looksIntentional(snap *graph.Snapshot, nodeID string) bool {
	n, ok := snap.Node(nodeID)
	if !ok {
		return false
	}
	if _, ok := entryPointTypes[n.Type]; ok {
		return true
	}
	return n.Attrs["entrypoint"] == "true" || n.Attrs["exported"] == "true"
}

func adviseOrphan(snap *graph.Snapshot, p *DetectedPattern) []RemediationSuggestion {
	d := p.Orphan
	if !d.NoIncoming || !d.NoOutgoing {
		return []RemediationSuggestion{{
			Action:      ActionInvestigate,
			Description: fmt.Sprintf("Confirm whether %q is a deliberate graph boundary or a missing connection", d.NodeID),
			Priority:    1,
		}}
	}
	if looksIntentional(snap, d.NodeID) {
		return []RemediationSuggestion{{
			Action:      ActionDocument,
			Description: fmt.Sprintf("Document why %q stands alone; it looks like an intentional entry or exit point", d.NodeID),
			Priority:    2,
		}}
	}
	return []RemediationSuggestion{{
		Action:      ActionRemove,
		Description: fmt.Sprintf("Remove %q if it is no longer used; nothing connects to it", d.NodeID),
		Priority:    1,
		EffortHours: 0.5,
	}}
}

func adviseHub(_ *graph.Snapshot, p *DetectedPattern) []RemediationSuggestion {
	d := p.Hub
	return []RemediationSuggestion{
		{
			Action: ActionSplit,
			Description: fmt.Sprintf("Split %q into smaller units; %d connections concentrate too much of the graph in one place",
				d.NodeID, d.Total),
			Steps: []string{
				"Group the node's connections by the concern they serve",
				"Extract one new node per concern and move its edges across",
			},
			Priority:    1,
			EffortHours: float64(d.Total) * 0.5,
		},
		{
			Action:      ActionDocument,
			Description: fmt.Sprintf("If %q is a deliberate aggregation point, document it and raise the hub threshold", d.NodeID),
			Priority:    2,
		},
	}
}

func adviseDead(_ *graph.Snapshot, p *DetectedPattern) []RemediationSuggestion {
	count := len(p.Dead.UnreachableNodes)
	return []RemediationSuggestion{{
		Action: ActionRemove,
		Description: fmt.Sprintf("Remove the %d unreachable nodes listed on this finding, or connect them to a root",
			count),
		Priority:    1,
		EffortHours: float64(count) * 0.25,
	}}
}
