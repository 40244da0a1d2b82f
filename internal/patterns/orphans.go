package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/snarlhq/snarl/internal/graph"
)

// detectOrphans flags isolated nodes. A node with neither incoming nor
// outgoing edges is always an orphan; nodes missing only one direction are
// flagged only when partial-isolation detection is on.
func detectOrphans(ctx context.Context, snap *graph.Snapshot, includePartial bool) ([]DetectedPattern, error) {
	var found []DetectedPattern

	for _, id := range snap.NodeIDs() {
		if err := ctx.Err(); err != nil {
			return found, ErrCancelled
		}

		in := snap.InDegree(id)
		out := snap.OutDegree(id)

		switch {
		case in == 0 && out == 0:
			found = append(found, newOrphanPattern(id, true, true))
		case includePartial && in == 0:
			found = append(found, newOrphanPattern(id, true, false))
		case includePartial && out == 0:
			found = append(found, newOrphanPattern(id, false, true))
		}
	}

	return found, nil
}

func newOrphanPattern(nodeID string, noIncoming, noOutgoing bool) DetectedPattern {
	severity := SeverityInfo
	desc := fmt.Sprintf("Node %q has no incoming edges", nodeID)
	if noOutgoing {
		desc = fmt.Sprintf("Node %q has no outgoing edges", nodeID)
	}
	if noIncoming && noOutgoing {
		severity = SeverityWarning
		desc = fmt.Sprintf("Node %q has no connections", nodeID)
	}

	key := fmt.Sprintf("orphan|%s|in:%t|out:%t", nodeID, noIncoming, noOutgoing)
	return DetectedPattern{
		ID:          patternID("orphan", key),
		Type:        PatternOrphaned,
		Severity:    severity,
		Description: desc,
		Nodes:       []string{nodeID},
		DetectedAt:  time.Now().UTC(),
		Orphan: &OrphanDetail{
			NodeID:     nodeID,
			NoIncoming: noIncoming,
			NoOutgoing: noOutgoing,
		},
	}
}
