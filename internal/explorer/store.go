package explorer

import (
	"fmt"

	"github.com/snarlhq/snarl/internal/history"
	"github.com/snarlhq/snarl/internal/patterns"
)

// Store is the explorer's read model over the run history. Lookups accept run
// IDs or tags interchangeably so the API stays usable from an address bar.
type Store struct {
	runs *history.Store
}

// NewStore wraps an opened history store.
func NewStore(runs *history.Store) *Store {
	return &Store{runs: runs}
}

// List returns all run summaries, newest first.
func (s *Store) List() []history.RunSummary {
	return s.runs.List()
}

// Get resolves a run by ID, falling back to tag lookup. The literal ref
// "latest" resolves to the most recently saved run.
func (s *Store) Get(ref string) (*history.Run, error) {
	if ref == "latest" {
		return s.runs.Latest()
	}
	run, err := s.runs.Load(ref)
	if err == nil {
		return run, nil
	}
	if byTag, tagErr := s.runs.FindByTag(ref); tagErr == nil {
		return byTag, nil
	}
	return nil, err
}

// Diff loads both runs and computes the finding-level differences between
// them.
func (s *Store) Diff(oldRef, newRef string) (*history.RunDiff, error) {
	oldRun, err := s.Get(oldRef)
	if err != nil {
		return nil, fmt.Errorf("old run: %w", err)
	}
	newRun, err := s.Get(newRef)
	if err != nil {
		return nil, fmt.Errorf("new run: %w", err)
	}
	return history.Diff(oldRun, newRun), nil
}

// Reload re-reads the history index from disk, picking up runs written by
// other processes since the store was opened.
func (s *Store) Reload() error {
	return s.runs.Reload()
}

// RunCount returns the number of stored runs.
func (s *Store) RunCount() int {
	return len(s.runs.List())
}

// Stats holds aggregate statistics across the stored runs.
type Stats struct {
	TotalRuns     int     `json:"total_runs"`
	TotalFindings int     `json:"total_findings"`
	TaggedRuns    int     `json:"tagged_runs"`
	CancelledRuns int     `json:"cancelled_runs"`
	AvgFindings   float64 `json:"avg_findings_per_run"`
	WorstSeverity string  `json:"worst_severity,omitempty"`
	LatestRunID   string  `json:"latest_run_id,omitempty"`
}

// Stats aggregates the run history.
func (s *Store) Stats() Stats {
	list := s.runs.List()

	stats := Stats{TotalRuns: len(list)}
	worstRank := -1
	for _, summary := range list {
		stats.TotalFindings += summary.PatternCount
		if summary.Tag != "" {
			stats.TaggedRuns++
		}
		if summary.Cancelled {
			stats.CancelledRuns++
		}
		if sev := patterns.Severity(summary.Worst); sev.Valid() && sev.Rank() > worstRank {
			worstRank = sev.Rank()
			stats.WorstSeverity = summary.Worst
		}
	}
	if stats.TotalRuns > 0 {
		stats.AvgFindings = float64(stats.TotalFindings) / float64(stats.TotalRuns)
		stats.LatestRunID = list[0].ID
	}
	return stats
}
