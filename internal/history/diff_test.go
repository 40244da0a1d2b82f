package history

import (
	"strings"
	"testing"

	"github.com/snarlhq/snarl/internal/patterns"
)

func runWith(id, tag string, findings ...patterns.DetectedPattern) *Run {
	return &Run{ID: id, Tag: tag, Result: makeResult(findings...)}
}

// ==================== Diff Tests ====================

func TestDiff_AddedResolvedUnchanged(t *testing.T) {
	old := runWith("run-1", "baseline",
		finding("cd-a", patterns.PatternCircular, patterns.SeverityWarning),
		finding("hn-b", patterns.PatternHub, patterns.SeverityError),
	)
	new := runWith("run-2", "",
		finding("hn-b", patterns.PatternHub, patterns.SeverityError),
		finding("dc-c", patterns.PatternDead, patterns.SeverityInfo),
	)

	d := Diff(old, new)

	if d.OldID != "run-1" || d.NewID != "run-2" || d.OldTag != "baseline" {
		t.Errorf("identity fields wrong: %+v", d)
	}
	if len(d.Added) != 1 || d.Added[0].ID != "dc-c" {
		t.Errorf("expected dc-c added, got %v", d.Added)
	}
	if len(d.Resolved) != 1 || d.Resolved[0].ID != "cd-a" {
		t.Errorf("expected cd-a resolved, got %v", d.Resolved)
	}
	if d.Summary.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged, got %d", d.Summary.UnchangedCount)
	}
	if d.Summary.TotalDelta != 0 {
		t.Errorf("expected zero net delta, got %d", d.Summary.TotalDelta)
	}
	if d.Summary.Improved {
		t.Error("a run with new findings is not an improvement")
	}

	if d.ByType[patterns.PatternCircular] != -1 {
		t.Errorf("expected circular delta -1, got %d", d.ByType[patterns.PatternCircular])
	}
	if d.ByType[patterns.PatternDead] != 1 {
		t.Errorf("expected dead delta +1, got %d", d.ByType[patterns.PatternDead])
	}
	if d.ByType[patterns.PatternHub] != 0 {
		t.Errorf("expected hub delta 0, got %d", d.ByType[patterns.PatternHub])
	}
	if d.BySeverity[patterns.SeverityWarning] != -1 || d.BySeverity[patterns.SeverityInfo] != 1 {
		t.Errorf("severity deltas wrong: %v", d.BySeverity)
	}
}

func TestDiff_Improved(t *testing.T) {
	old := runWith("run-1", "",
		finding("cd-a", patterns.PatternCircular, patterns.SeverityWarning),
		finding("hn-b", patterns.PatternHub, patterns.SeverityError),
	)
	new := runWith("run-2", "",
		finding("hn-b", patterns.PatternHub, patterns.SeverityError),
	)

	d := Diff(old, new)
	if !d.Summary.Improved {
		t.Error("expected improvement when findings only resolve")
	}
	if d.Summary.TotalDelta != -1 {
		t.Errorf("expected net -1, got %d", d.Summary.TotalDelta)
	}
}

func TestDiff_Identical(t *testing.T) {
	f := finding("hn-b", patterns.PatternHub, patterns.SeverityError)
	d := Diff(runWith("run-1", "", f), runWith("run-2", "", f))

	if len(d.Added) != 0 || len(d.Resolved) != 0 {
		t.Errorf("expected no changes, got %+v", d)
	}
	if d.Added == nil || d.Resolved == nil {
		t.Error("expected empty slices, not nil")
	}
	if d.Summary.UnchangedCount != 1 || d.Summary.Improved {
		t.Errorf("summary wrong: %+v", d.Summary)
	}
}

func TestDiff_EmptyOldRun(t *testing.T) {
	old := runWith("run-1", "")
	new := runWith("run-2", "",
		finding("cd-a", patterns.PatternCircular, patterns.SeverityCritical),
	)

	d := Diff(old, new)
	if len(d.Added) != 1 || d.Summary.TotalDelta != 1 {
		t.Errorf("expected one added finding, got %+v", d.Summary)
	}
}

func TestFormatDiff(t *testing.T) {
	old := runWith("run-1", "baseline",
		finding("cd-a", patterns.PatternCircular, patterns.SeverityWarning),
	)
	new := runWith("run-2", "",
		finding("dc-c", patterns.PatternDead, patterns.SeverityInfo),
	)

	out := FormatDiff(Diff(old, new))

	for _, want := range []string{
		"Old: run-1 (baseline)",
		"New: run-2",
		"Added:     1",
		"Resolved:  1",
		"Net:       +0",
		"ADDED",
		"[info] dc-c  finding dc-c",
		"RESOLVED",
		"[warning] cd-a  finding cd-a",
		"circular_dependency: -1",
		"dead_code: +1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected diff text to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatDiff_Improved(t *testing.T) {
	old := runWith("run-1", "",
		finding("cd-a", patterns.PatternCircular, patterns.SeverityWarning),
	)
	new := runWith("run-2", "")

	out := FormatDiff(Diff(old, new))
	if !strings.Contains(out, "Improved: no new findings, some resolved.") {
		t.Errorf("expected improvement marker, got:\n%s", out)
	}
}
