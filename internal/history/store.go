package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/snarlhq/snarl/internal/observability"
	"github.com/snarlhq/snarl/internal/patterns"
)

const (
	runsDir   = "runs"
	indexFile = "index.json"
)

// Store keeps detection runs on disk under a root directory. All operations
// are safe for concurrent use within one process; the index is rewritten on
// every mutation.
type Store struct {
	mu      sync.RWMutex
	rootDir string
	index   *Index
}

// NewStore creates or opens a run store at the given directory.
func NewStore(rootDir string) (*Store, error) {
	s := &Store{rootDir: rootDir}

	if err := os.MkdirAll(filepath.Join(rootDir, runsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	if err := s.loadIndex(); err != nil {
		s.index = &Index{Runs: []RunSummary{}, UpdatedAt: time.Now()}
	}
	return s, nil
}

// Save persists a result as a new run and returns the stored record.
func (s *Store) Save(result *patterns.Result, opts SaveOptions) (*Run, error) {
	if result == nil {
		return nil, fmt.Errorf("nil result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	hash := resultHash(result)
	run := &Run{
		ID:          newRunID(now, hash),
		Tag:         opts.Tag,
		Description: opts.Description,
		CreatedAt:   now,
		Source:      opts.Source,
		NodeCount:   opts.NodeCount,
		EdgeCount:   opts.EdgeCount,
		ContentHash: hash,
		Result:      result,
		Metadata:    opts.Metadata,
	}

	if err := s.writeRun(run); err != nil {
		return nil, err
	}

	s.index.Runs = append(s.index.Runs, run.Summary())
	s.index.UpdatedAt = time.Now()
	if err := s.saveIndex(); err != nil {
		return nil, err
	}

	observability.RunsPersisted.Inc()
	return run, nil
}

// Load retrieves a run by ID.
func (s *Store) Load(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *Store) loadLocked(id string) (*Run, error) {
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

// Reload re-reads the index from disk, picking up runs written by other
// processes. A missing index file resets the store to empty.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndex(); err != nil {
		if os.IsNotExist(err) {
			s.index = &Index{Runs: []RunSummary{}, UpdatedAt: time.Now()}
			return nil
		}
		return fmt.Errorf("reload index: %w", err)
	}
	return nil
}

// List returns all run summaries, newest first.
func (s *Store) List() []RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RunSummary, len(s.index.Runs))
	copy(result, s.index.Runs)

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// Latest returns the most recently saved run.
func (s *Store) Latest() (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.index.Runs) == 0 {
		return nil, fmt.Errorf("store is empty")
	}
	latest := s.index.Runs[0]
	for _, summary := range s.index.Runs[1:] {
		if summary.CreatedAt.After(latest.CreatedAt) ||
			(summary.CreatedAt.Equal(latest.CreatedAt) && summary.ID > latest.ID) {
			latest = summary
		}
	}
	return s.loadLocked(latest.ID)
}

// FindByTag returns the run carrying the given tag.
func (s *Store) FindByTag(tag string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, summary := range s.index.Runs {
		if summary.Tag == tag {
			return s.loadLocked(summary.ID)
		}
	}
	return nil, fmt.Errorf("run with tag %q not found", tag)
}

// Tag assigns a tag to a run. Any other run holding the same tag loses it, so
// tags stay unique handles.
func (s *Store) Tag(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.loadLocked(id)
	if err != nil {
		return err
	}

	if tag != "" {
		for i, summary := range s.index.Runs {
			if summary.Tag == tag && summary.ID != id {
				other, err := s.loadLocked(summary.ID)
				if err != nil {
					return err
				}
				other.Tag = ""
				if err := s.writeRun(other); err != nil {
					return err
				}
				s.index.Runs[i].Tag = ""
			}
		}
	}

	run.Tag = tag
	if err := s.writeRun(run); err != nil {
		return err
	}

	for i, summary := range s.index.Runs {
		if summary.ID == id {
			s.index.Runs[i].Tag = tag
			break
		}
	}
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Delete removes a run.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.runPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run %s: %w", id, err)
	}

	filtered := s.index.Runs[:0]
	for _, summary := range s.index.Runs {
		if summary.ID != id {
			filtered = append(filtered, summary)
		}
	}
	s.index.Runs = filtered
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

func (s *Store) runPath(id string) string {
	return filepath.Join(s.rootDir, runsDir, id+".json")
}

func (s *Store) writeRun(run *Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(s.runPath(run.ID), data, 0o644); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.rootDir, indexFile))
	if err != nil {
		return err
	}
	s.index = &Index{}
	return json.Unmarshal(data, s.index)
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.rootDir, indexFile), data, 0o644)
}
