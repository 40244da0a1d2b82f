package history

import (
	"fmt"
	"strings"

	"github.com/snarlhq/snarl/internal/patterns"
)

// RunDiff captures how the findings changed between two runs. Patterns are
// matched by ID; since IDs derive from finding content, an unchanged ID means
// the same finding at the same severity.
type RunDiff struct {
	OldID  string `json:"old_id"`
	NewID  string `json:"new_id"`
	OldTag string `json:"old_tag,omitempty"`
	NewTag string `json:"new_tag,omitempty"`

	// Added holds findings present only in the new run, Resolved those
	// present only in the old run, both in report order.
	Added    []patterns.DetectedPattern `json:"added"`
	Resolved []patterns.DetectedPattern `json:"resolved"`

	// ByType and BySeverity are new-minus-old count deltas, zero-filled for
	// every known type and severity.
	ByType     map[patterns.PatternType]int `json:"by_type"`
	BySeverity map[patterns.Severity]int    `json:"by_severity"`

	Summary DiffSummary `json:"summary"`
}

// DiffSummary aggregates the diff.
type DiffSummary struct {
	AddedCount     int  `json:"added"`
	ResolvedCount  int  `json:"resolved"`
	UnchangedCount int  `json:"unchanged"`
	TotalDelta     int  `json:"total_delta"`
	// Improved is set when the new run resolved findings without introducing
	// any new ones.
	Improved bool `json:"improved"`
}

// Diff computes the finding-level differences between two runs.
func Diff(old, new *Run) *RunDiff {
	d := &RunDiff{
		OldID:      old.ID,
		NewID:      new.ID,
		OldTag:     old.Tag,
		NewTag:     new.Tag,
		Added:      []patterns.DetectedPattern{},
		Resolved:   []patterns.DetectedPattern{},
		ByType:     make(map[patterns.PatternType]int),
		BySeverity: make(map[patterns.Severity]int),
	}

	oldPatterns := runPatterns(old)
	newPatterns := runPatterns(new)

	oldIDs := make(map[string]bool, len(oldPatterns))
	for _, p := range oldPatterns {
		oldIDs[p.ID] = true
	}
	newIDs := make(map[string]bool, len(newPatterns))
	for _, p := range newPatterns {
		newIDs[p.ID] = true
	}

	for _, p := range newPatterns {
		if oldIDs[p.ID] {
			d.Summary.UnchangedCount++
		} else {
			d.Added = append(d.Added, p)
		}
	}
	for _, p := range oldPatterns {
		if !newIDs[p.ID] {
			d.Resolved = append(d.Resolved, p)
		}
	}

	for _, t := range patterns.AllPatternTypes {
		d.ByType[t] = countByType(newPatterns, t) - countByType(oldPatterns, t)
	}
	for _, s := range []patterns.Severity{
		patterns.SeverityInfo, patterns.SeverityWarning,
		patterns.SeverityError, patterns.SeverityCritical,
	} {
		d.BySeverity[s] = countBySeverity(newPatterns, s) - countBySeverity(oldPatterns, s)
	}

	d.Summary.AddedCount = len(d.Added)
	d.Summary.ResolvedCount = len(d.Resolved)
	d.Summary.TotalDelta = len(newPatterns) - len(oldPatterns)
	d.Summary.Improved = len(d.Added) == 0 && len(d.Resolved) > 0
	return d
}

// FormatDiff renders the diff as readable text.
func FormatDiff(d *RunDiff) string {
	var b strings.Builder
	b.WriteString("Run Diff\n")
	b.WriteString("========\n\n")
	b.WriteString(fmt.Sprintf("Old: %s%s\n", d.OldID, tagSuffix(d.OldTag)))
	b.WriteString(fmt.Sprintf("New: %s%s\n\n", d.NewID, tagSuffix(d.NewTag)))

	b.WriteString(fmt.Sprintf("Added:     %d\n", d.Summary.AddedCount))
	b.WriteString(fmt.Sprintf("Resolved:  %d\n", d.Summary.ResolvedCount))
	b.WriteString(fmt.Sprintf("Unchanged: %d\n", d.Summary.UnchangedCount))
	b.WriteString(fmt.Sprintf("Net:       %+d\n", d.Summary.TotalDelta))
	if d.Summary.Improved {
		b.WriteString("\nImproved: no new findings, some resolved.\n")
	}

	if len(d.Added) > 0 {
		b.WriteString("\nADDED\n")
		for _, p := range d.Added {
			b.WriteString(fmt.Sprintf("  [%s] %s  %s\n", p.Severity, p.ID, p.Description))
		}
	}
	if len(d.Resolved) > 0 {
		b.WriteString("\nRESOLVED\n")
		for _, p := range d.Resolved {
			b.WriteString(fmt.Sprintf("  [%s] %s  %s\n", p.Severity, p.ID, p.Description))
		}
	}

	typeLines := deltaLines(d)
	if len(typeLines) > 0 {
		b.WriteString("\nBY TYPE\n")
		for _, line := range typeLines {
			b.WriteString(line)
		}
	}
	return b.String()
}

func deltaLines(d *RunDiff) []string {
	var lines []string
	for _, t := range patterns.AllPatternTypes {
		if delta := d.ByType[t]; delta != 0 {
			lines = append(lines, fmt.Sprintf("  %s: %+d\n", t, delta))
		}
	}
	return lines
}

func tagSuffix(tag string) string {
	if tag == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", tag)
}

func runPatterns(r *Run) []patterns.DetectedPattern {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.Patterns
}

func countByType(list []patterns.DetectedPattern, t patterns.PatternType) int {
	n := 0
	for _, p := range list {
		if p.Type == t {
			n++
		}
	}
	return n
}

func countBySeverity(list []patterns.DetectedPattern, s patterns.Severity) int {
	n := 0
	for _, p := range list {
		if p.Severity == s {
			n++
		}
	}
	return n
}
