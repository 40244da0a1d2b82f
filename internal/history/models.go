// Package history persists detection results to disk and compares runs over
// time. Runs are stored one JSON document each under runs/, with a light
// index for listing.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/snarlhq/snarl/internal/patterns"
)

// Run is one persisted detection pass together with its provenance.
type Run struct {
	ID          string            `json:"id"`
	Tag         string            `json:"tag,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Source      string            `json:"source,omitempty"`
	NodeCount   int               `json:"node_count"`
	EdgeCount   int               `json:"edge_count"`
	ContentHash string            `json:"content_hash"`
	Result      *patterns.Result  `json:"result"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SaveOptions carries the caller-supplied metadata for a saved run.
type SaveOptions struct {
	Tag         string
	Description string
	Source      string
	NodeCount   int
	EdgeCount   int
	Metadata    map[string]string
}

// RunSummary is the minimal info for listing runs.
type RunSummary struct {
	ID           string    `json:"id"`
	Tag          string    `json:"tag,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Source       string    `json:"source,omitempty"`
	PatternCount int       `json:"pattern_count"`
	Worst        string    `json:"worst,omitempty"`
	Cancelled    bool      `json:"cancelled,omitempty"`
	NodeCount    int       `json:"node_count"`
	EdgeCount    int       `json:"edge_count"`
}

// Index is the lightweight listing of all runs for fast lookup.
type Index struct {
	Runs      []RunSummary `json:"runs"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Summary returns the index entry for this run.
func (r *Run) Summary() RunSummary {
	s := RunSummary{
		ID:        r.ID,
		Tag:       r.Tag,
		CreatedAt: r.CreatedAt,
		Source:    r.Source,
		NodeCount: r.NodeCount,
		EdgeCount: r.EdgeCount,
	}
	if r.Result != nil {
		s.PatternCount = r.Result.Summary.Total
		s.Worst = string(worstSeverity(r.Result))
		s.Cancelled = r.Result.Cancelled()
	}
	return s
}

func worstSeverity(result *patterns.Result) patterns.Severity {
	worst := patterns.Severity("")
	rank := -1
	for _, p := range result.Patterns {
		if p.Severity.Rank() > rank {
			worst = p.Severity
			rank = p.Severity.Rank()
		}
	}
	return worst
}

// resultHash derives a stable digest from the finding IDs and severities.
// Pattern IDs are content-derived, so two runs over the same graph with the
// same configuration hash identically.
func resultHash(result *patterns.Result) string {
	h := sha256.New()
	for _, p := range result.Patterns {
		h.Write([]byte(p.ID))
		h.Write([]byte{0})
		h.Write([]byte(p.Severity))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// newRunID builds a time-prefixed ID so lexical order matches creation order,
// with a content suffix to disambiguate runs saved in the same second.
func newRunID(createdAt time.Time, contentHash string) string {
	return createdAt.UTC().Format("20060102-150405") + "-" + contentHash[:8]
}
