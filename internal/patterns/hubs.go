package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/snarlhq/snarl/internal/graph"
)

// detectHubs flags nodes whose total degree strictly exceeds the configured
// threshold. A node sitting exactly at the threshold is not a hub.
func detectHubs(ctx context.Context, snap *graph.Snapshot, threshold int) ([]DetectedPattern, error) {
	var found []DetectedPattern

	for _, id := range snap.NodeIDs() {
		if err := ctx.Err(); err != nil {
			return found, ErrCancelled
		}

		in := snap.InDegree(id)
		out := snap.OutDegree(id)
		total := in + out
		if total <= threshold {
			continue
		}

		severity := SeverityWarning
		if total > 2*threshold {
			severity = SeverityError
		}

		key := fmt.Sprintf("hub|%s|t=%d", id, threshold)
		found = append(found, DetectedPattern{
			ID:       patternID("hub", key),
			Type:     PatternHub,
			Severity: severity,
			Description: fmt.Sprintf("Node %q has %d connections (%d in, %d out), above the threshold of %d",
				id, total, in, out, threshold),
			Nodes:      []string{id},
			DetectedAt: time.Now().UTC(),
			Hub: &HubDetail{
				NodeID:    id,
				InDegree:  in,
				OutDegree: out,
				Total:     total,
				Threshold: threshold,
			},
		})
	}

	return found, nil
}
