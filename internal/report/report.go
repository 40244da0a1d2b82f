// Package report renders detection results for humans and for downstream
// tools: a terminal summary box, a full text listing, and JSON/DOT/Mermaid
// exports.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/snarlhq/snarl/internal/patterns"
)

// displaySeverities orders severities worst-first for report sections.
var displaySeverities = []patterns.Severity{
	patterns.SeverityCritical,
	patterns.SeverityError,
	patterns.SeverityWarning,
	patterns.SeverityInfo,
}

// PrintSummary writes a compact box summary of one detection pass.
func PrintSummary(w io.Writer, result *patterns.Result) {
	status := "complete"
	if result.Cancelled() {
		status = "CANCELLED (partial)"
	}
	elapsed := (time.Duration(result.ElapsedMS) * time.Millisecond).Round(time.Millisecond)

	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        SNARL ANALYSIS REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Analyzed:    %-23s║\n", result.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "║ Elapsed:     %-23s║\n", elapsed)
	fmt.Fprintf(w, "║ Status:      %-23s║\n", status)
	fmt.Fprintf(w, "║ Patterns:    %-23d║\n", result.Summary.Total)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ BY TYPE\n")
	for _, t := range patterns.AllPatternTypes {
		fmt.Fprintf(w, "║   %-22s %d\n", string(t)+":", result.Summary.ByType[t])
	}
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ BY SEVERITY\n")
	for _, s := range displaySeverities {
		fmt.Fprintf(w, "║   %-22s %d\n", string(s)+":", result.Summary.BySeverity[s])
	}
	if len(result.Metadata) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ NOTES\n")
		for _, k := range sortedKeys(result.Metadata) {
			fmt.Fprintf(w, "║   %s: %s\n", k, result.Metadata[k])
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// FormatText returns the full listing: every finding with its detail lines
// and remediation plan.
func FormatText(result *patterns.Result) string {
	var b strings.Builder
	b.WriteString("Snarl Analysis Report\n")
	b.WriteString("=====================\n\n")
	b.WriteString(fmt.Sprintf("Analyzed: %s\n", result.AnalyzedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Elapsed:  %dms\n", result.ElapsedMS))
	b.WriteString(fmt.Sprintf("Patterns: %d total\n", result.Summary.Total))
	if result.Cancelled() {
		b.WriteString("\nNOTE: analysis was cancelled; findings are partial.\n")
	}
	if note, ok := result.Metadata["dead_code"]; ok {
		b.WriteString(fmt.Sprintf("\nNOTE: %s\n", note))
	}

	for _, t := range patterns.AllPatternTypes {
		group := byType(result.Patterns, t)
		if len(group) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s (%d)\n", strings.ToUpper(string(t)), len(group)))
		for _, p := range group {
			writePattern(&b, p)
		}
	}

	if result.Summary.Total == 0 {
		b.WriteString("\nNo patterns detected.\n")
	}
	return b.String()
}

func writePattern(b *strings.Builder, p patterns.DetectedPattern) {
	b.WriteString(fmt.Sprintf("  [%s] %s\n", p.Severity, p.ID))
	b.WriteString(fmt.Sprintf("      %s\n", p.Description))

	switch {
	case p.Circular != nil:
		b.WriteString(fmt.Sprintf("      cycle: %s\n", strings.Join(p.Circular.Cycle, " -> ")))
	case p.Orphan != nil:
		b.WriteString(fmt.Sprintf("      links: %s\n", orphanFlags(p.Orphan)))
	case p.Hub != nil:
		b.WriteString(fmt.Sprintf("      degree: in %d, out %d, total %d (threshold %d)\n",
			p.Hub.InDegree, p.Hub.OutDegree, p.Hub.Total, p.Hub.Threshold))
	case p.Dead != nil:
		b.WriteString(fmt.Sprintf("      unreachable: %s\n", truncateList(p.Dead.UnreachableNodes, 10)))
		b.WriteString(fmt.Sprintf("      roots: %s\n", truncateList(p.Dead.Roots, 10)))
	}

	for _, r := range p.Remediations {
		effort := ""
		if r.EffortHours > 0 {
			effort = fmt.Sprintf(" (est %.1fh)", r.EffortHours)
		}
		b.WriteString(fmt.Sprintf("      fix %d: [%s] %s%s\n", r.Priority, r.Action, r.Description, effort))
		for _, step := range r.Steps {
			b.WriteString(fmt.Sprintf("        - %s\n", step))
		}
	}
}

func orphanFlags(o *patterns.OrphanDetail) string {
	switch {
	case o.NoIncoming && o.NoOutgoing:
		return "no incoming, no outgoing"
	case o.NoIncoming:
		return "no incoming"
	default:
		return "no outgoing"
	}
}

func byType(list []patterns.DetectedPattern, t patterns.PatternType) []patterns.DetectedPattern {
	var out []patterns.DetectedPattern
	for _, p := range list {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

func truncateList(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s, ... and %d more", strings.Join(items[:max], ", "), len(items)-max)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
