package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/snarlhq/snarl/internal/graph"
	"github.com/snarlhq/snarl/internal/patterns"
)

func fixtureSnapshot() *graph.Snapshot {
	return graph.NewSnapshot(
		[]graph.Node{
			{ID: "a", Type: "module"},
			{ID: "b", Type: "module"},
			{ID: "hub", Type: "module"},
			{ID: "lonely", Type: "module"},
			{ID: "x", Type: "module"},
		},
		[]graph.Edge{
			{From: "a", To: "b", Type: "depends_on"},
			{From: "b", To: "a", Type: "depends_on"},
			{From: "hub", To: "x", Type: "depends_on"},
		},
		nil, nil,
	)
}

func fixtureResult() *patterns.Result {
	list := []patterns.DetectedPattern{
		{
			ID:          "cd-aaaaaaaaaaaa",
			Type:        patterns.PatternCircular,
			Severity:    patterns.SeverityWarning,
			Description: `Circular dependency: a -> b -> a`,
			Nodes:       []string{"a", "b"},
			Edges: []graph.Edge{
				{From: "a", To: "b", Type: "depends_on"},
				{From: "b", To: "a", Type: "depends_on"},
			},
			Circular: &patterns.CircularDetail{Cycle: []string{"a", "b", "a"}, Length: 2},
			Remediations: []patterns.RemediationSuggestion{
				{
					Action:      patterns.ActionRefactor,
					Description: "Break the cycle",
					Steps:       []string{"Pick the weakest edge", "Invert it"},
					Priority:    1,
					EffortHours: 6,
				},
			},
		},
		{
			ID:          "on-bbbbbbbbbbbb",
			Type:        patterns.PatternOrphaned,
			Severity:    patterns.SeverityWarning,
			Description: `Node "lonely" has no connections`,
			Nodes:       []string{"lonely"},
			Orphan:      &patterns.OrphanDetail{NodeID: "lonely", NoIncoming: true, NoOutgoing: true},
		},
		{
			ID:          "hn-cccccccccccc",
			Type:        patterns.PatternHub,
			Severity:    patterns.SeverityError,
			Description: `Node "hub" has 12 connections`,
			Nodes:       []string{"hub"},
			Hub:         &patterns.HubDetail{NodeID: "hub", InDegree: 7, OutDegree: 5, Total: 12, Threshold: 5},
		},
		{
			ID:          "dc-dddddddddddd",
			Type:        patterns.PatternDead,
			Severity:    patterns.SeverityInfo,
			Description: "1 of 5 nodes are unreachable from 1 root node(s)",
			Nodes:       []string{"x"},
			Dead:        &patterns.DeadCodeDetail{UnreachableNodes: []string{"x"}, Roots: []string{"a"}},
		},
	}
	return &patterns.Result{
		Patterns: list,
		Summary: patterns.Summary{
			Total: 4,
			ByType: map[patterns.PatternType]int{
				patterns.PatternCircular: 1,
				patterns.PatternOrphaned: 1,
				patterns.PatternHub:      1,
				patterns.PatternDead:     1,
			},
			BySeverity: map[patterns.Severity]int{
				patterns.SeverityInfo:     1,
				patterns.SeverityWarning:  2,
				patterns.SeverityError:    1,
				patterns.SeverityCritical: 0,
			},
		},
		AnalyzedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ElapsedMS:  42,
	}
}

// ==================== Summary Box Tests ====================

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, fixtureResult())
	out := buf.String()

	for _, want := range []string{
		"SNARL ANALYSIS REPORT",
		"Status:      complete",
		"Patterns:    4",
		"circular_dependency:   1",
		"dead_code:             1",
		"critical:              0",
		"warning:               2",
		"2026-03-14 09:30:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintSummary_Cancelled(t *testing.T) {
	result := fixtureResult()
	result.Metadata = map[string]string{"cancelled": "true"}

	var buf bytes.Buffer
	PrintSummary(&buf, result)

	if !strings.Contains(buf.String(), "CANCELLED (partial)") {
		t.Error("expected cancelled marker in summary")
	}
	if !strings.Contains(buf.String(), "cancelled: true") {
		t.Error("expected metadata note in summary")
	}
}

// ==================== Text Listing Tests ====================

func TestFormatText(t *testing.T) {
	out := FormatText(fixtureResult())

	for _, want := range []string{
		"Snarl Analysis Report",
		"Elapsed:  42ms",
		"Patterns: 4 total",
		"CIRCULAR_DEPENDENCY (1)",
		"cycle: a -> b -> a",
		"ORPHANED_NODE (1)",
		"links: no incoming, no outgoing",
		"HUB_NODE (1)",
		"degree: in 7, out 5, total 12 (threshold 5)",
		"DEAD_CODE (1)",
		"unreachable: x",
		"roots: a",
		"fix 1: [refactor] Break the cycle (est 6.0h)",
		"- Pick the weakest edge",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected listing to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatText_Empty(t *testing.T) {
	result := &patterns.Result{
		Summary:    patterns.Summary{Total: 0},
		AnalyzedAt: time.Now(),
	}
	out := FormatText(result)
	if !strings.Contains(out, "No patterns detected.") {
		t.Errorf("expected empty marker, got:\n%s", out)
	}
}

func TestFormatText_Notes(t *testing.T) {
	result := fixtureResult()
	result.Metadata = map[string]string{
		"cancelled": "true",
		"dead_code": "no root nodes: every node has incoming edges, reachability not computed",
	}
	out := FormatText(result)

	if !strings.Contains(out, "analysis was cancelled; findings are partial") {
		t.Error("expected cancellation note")
	}
	if !strings.Contains(out, "NOTE: no root nodes") {
		t.Error("expected dead code note")
	}
}

func TestTruncateList(t *testing.T) {
	short := truncateList([]string{"a", "b"}, 10)
	if short != "a, b" {
		t.Errorf("expected plain join, got %q", short)
	}
	long := truncateList([]string{"a", "b", "c", "d"}, 2)
	if long != "a, b, ... and 2 more" {
		t.Errorf("unexpected truncation: %q", long)
	}
}

// ==================== Export Tests ====================

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(fixtureResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if _, ok := decoded["patterns"]; !ok {
		t.Error("expected patterns key in export")
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestExportDOT(t *testing.T) {
	out := ExportDOT(fixtureResult(), fixtureSnapshot())

	if !strings.HasPrefix(out, "digraph snarl {") {
		t.Errorf("expected digraph header, got:\n%s", out)
	}
	for _, want := range []string{
		// cycle members colored by the cycle's severity
		`"a" [label="a" shape=box style=filled fillcolor="#d29922"]`,
		// hub shape and error color
		`"hub" [label="hub" shape=box3d style=filled fillcolor="#f85149"]`,
		`"lonely" [label="lonely" shape=ellipse`,
		`"x" [label="x" shape=diamond`,
		// cycle edge drawn bold
		`"a" -> "b" [style=bold color="#d29922" label="depends_on"]`,
		// plain edge keeps the default stroke
		`"hub" -> "x" [style=solid color="#c9d1d9" label="depends_on"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected DOT to contain %q, got:\n%s", want, out)
		}
	}
}

func TestExportDOT_Deterministic(t *testing.T) {
	result, snap := fixtureResult(), fixtureSnapshot()
	if ExportDOT(result, snap) != ExportDOT(result, snap) {
		t.Error("expected identical output across calls")
	}
}

func TestExportMermaid(t *testing.T) {
	out := ExportMermaid(fixtureResult(), fixtureSnapshot())

	if !strings.HasPrefix(out, "graph LR\n") {
		t.Errorf("expected mermaid header, got:\n%s", out)
	}
	for _, want := range []string{
		`hub[["hub"]]`,
		`lonely(["lonely"])`,
		`x{"x"}`,
		`a ==>|depends_on| b`,
		`hub -->|depends_on| x`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected mermaid to contain %q, got:\n%s", want, out)
		}
	}
}

func TestSanitizeMermaidID(t *testing.T) {
	if got := sanitizeMermaidID("svc-a.b/c"); got != "svc_a_b_c" {
		t.Errorf("expected punctuation replaced, got %q", got)
	}
}
