package dashboard

import (
	"sort"
	"sync"
	"time"
)

const (
	maxRuns      = 100
	maxTotalLogs = 10000
)

// Store keeps recent analysis runs and their logs in memory. Finished runs
// are evicted oldest-first past the cap; runs still in flight never are.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*AnalysisRun
	logs []LogEntry
}

// NewStore creates an empty live run store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*AnalysisRun),
		logs: make([]LogEntry, 0),
	}
}

// CreateRun adds a new analysis run to the store.
func (s *Store) CreateRun(run *AnalysisRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	s.evictOldRuns()
}

// GetRun returns a copy of the run, so readers never race with event updates.
func (s *Store) GetRun(id string) (AnalysisRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return AnalysisRun{}, false
	}
	return copyRun(run), true
}

// ListRuns returns copies of all runs sorted by StartedAt descending.
func (s *Store) ListRuns() []AnalysisRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]AnalysisRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, copyRun(run))
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}

// UpdateRun performs a locked update on an analysis run. Updating an unknown
// run is a no-op.
func (s *Store) UpdateRun(id string, fn func(*AnalysisRun)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, ok := s.runs[id]; ok {
		fn(run)
	}
}

// GetStats computes aggregate statistics over the live runs.
func (s *Store) GetStats() LiveStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := LiveStats{TotalRuns: len(s.runs)}

	var totalDuration time.Duration
	var completed int
	for _, run := range s.runs {
		switch run.Status {
		case StatusRunning:
			stats.ActiveRuns++
		case StatusCompleted:
			stats.CompletedRuns++
			completed++
			if run.CompletedAt != nil {
				totalDuration += run.CompletedAt.Sub(run.StartedAt)
			}
		case StatusFailed:
			stats.FailedRuns++
		}
		stats.TotalFindings += run.PatternCount
	}

	if completed > 0 {
		stats.AvgDuration = totalDuration.Seconds() / float64(completed)
	}
	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.CompletedRuns) / float64(stats.TotalRuns)
	}
	return stats
}

// AddLog appends a log entry, dropping the oldest entries past the cap.
func (s *Store) AddLog(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, entry)
	if len(s.logs) > maxTotalLogs {
		s.logs = s.logs[len(s.logs)-maxTotalLogs:]
	}
}

// GetLogs retrieves logs for a specific run, most recent first.
func (s *Store) GetLogs(runID string, limit int) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := []LogEntry{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].RunID == runID {
			filtered = append(filtered, s.logs[i])
			if limit > 0 && len(filtered) >= limit {
				break
			}
		}
	}
	return filtered
}

func copyRun(run *AnalysisRun) AnalysisRun {
	out := *run
	out.Detectors = append([]DetectorResult(nil), run.Detectors...)
	return out
}

// evictOldRuns removes the oldest finished runs once the store exceeds
// maxRuns. Must be called with the lock held.
func (s *Store) evictOldRuns() {
	if len(s.runs) <= maxRuns {
		return
	}

	type runTime struct {
		id   string
		time time.Time
	}

	var finished []runTime
	for id, run := range s.runs {
		if run.Status == StatusCompleted || run.Status == StatusFailed {
			t := run.StartedAt
			if run.CompletedAt != nil {
				t = *run.CompletedAt
			}
			finished = append(finished, runTime{id: id, time: t})
		}
	}
	if len(finished) == 0 {
		return
	}

	sort.Slice(finished, func(i, j int) bool {
		return finished[i].time.Before(finished[j].time)
	})

	toDelete := len(s.runs) - maxRuns
	for i := 0; i < toDelete && i < len(finished); i++ {
		delete(s.runs, finished[i].id)
	}
}
