package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snarlhq/snarl/internal/graph"
	"github.com/snarlhq/snarl/internal/patterns"
)

// ExportJSON serializes the result to indented JSON.
func ExportJSON(result *patterns.Result) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// overlay precomputes, per node and per edge, how the findings touch the
// graph, so both diagram exporters draw from the same classification.
type overlay struct {
	hub    map[string]bool
	orphan map[string]bool
	dead   map[string]bool
	cycle  map[string]bool
	// worst severity among the findings a node appears in
	worst map[string]patterns.Severity
	// cycle edges keyed by from\x00to\x00type, valued by severity
	cycleEdges map[string]patterns.Severity
}

func buildOverlay(result *patterns.Result) *overlay {
	o := &overlay{
		hub:        make(map[string]bool),
		orphan:     make(map[string]bool),
		dead:       make(map[string]bool),
		cycle:      make(map[string]bool),
		worst:      make(map[string]patterns.Severity),
		cycleEdges: make(map[string]patterns.Severity),
	}
	for _, p := range result.Patterns {
		for _, id := range p.Nodes {
			if cur, ok := o.worst[id]; !ok || p.Severity.Rank() > cur.Rank() {
				o.worst[id] = p.Severity
			}
		}
		switch p.Type {
		case patterns.PatternCircular:
			for _, id := range p.Nodes {
				o.cycle[id] = true
			}
			for _, e := range p.Edges {
				key := edgeKey(e)
				if cur, ok := o.cycleEdges[key]; !ok || p.Severity.Rank() > cur.Rank() {
					o.cycleEdges[key] = p.Severity
				}
			}
		case patterns.PatternOrphaned:
			for _, id := range p.Nodes {
				o.orphan[id] = true
			}
		case patterns.PatternHub:
			for _, id := range p.Nodes {
				o.hub[id] = true
			}
		case patterns.PatternDead:
			for _, id := range p.Nodes {
				o.dead[id] = true
			}
		}
	}
	return o
}

func edgeKey(e graph.Edge) string {
	return e.From + "\x00" + e.To + "\x00" + e.Type
}

// ExportDOT generates a Graphviz DOT overlay of the findings on the analyzed
// graph. Flagged nodes are filled with their severity color; cycle edges are
// drawn bold in the cycle's color.
func ExportDOT(result *patterns.Result, snap *graph.Snapshot) string {
	o := buildOverlay(result)

	var b strings.Builder
	b.WriteString("digraph snarl {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, n := range snap.Nodes {
		shape := dotShape(o, n.ID)
		color := defaultNodeColor
		if sev, ok := o.worst[n.ID]; ok {
			color = severityColor(sev)
		}
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" shape=%s style=filled fillcolor=\"%s\"];\n",
			escapeDOT(n.ID), escapeDOT(n.ID), shape, color))
	}
	b.WriteString("\n")

	for _, e := range snap.Edges {
		style := "solid"
		color := plainEdgeColor
		if sev, ok := o.cycleEdges[edgeKey(e)]; ok {
			style = "bold"
			color = severityColor(sev)
		}
		label := ""
		if e.Type != "" {
			label = fmt.Sprintf(" label=\"%s\"", escapeDOT(e.Type))
		}
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s color=\"%s\"%s];\n",
			escapeDOT(e.From), escapeDOT(e.To), style, color, label))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid overlay of the findings on the analyzed
// graph. Node shapes encode the finding kind; cycle edges use thick arrows.
func ExportMermaid(result *patterns.Result, snap *graph.Snapshot) string {
	o := buildOverlay(result)

	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, n := range snap.Nodes {
		b.WriteString(fmt.Sprintf("  %s%s\n", sanitizeMermaidID(n.ID), mermaidShape(o, n.ID)))
	}

	for _, e := range snap.Edges {
		arrow := "-->"
		if _, ok := o.cycleEdges[edgeKey(e)]; ok {
			arrow = "==>"
		}
		label := ""
		if e.Type != "" {
			label = "|" + e.Type + "|"
		}
		b.WriteString(fmt.Sprintf("  %s %s%s %s\n",
			sanitizeMermaidID(e.From), arrow, label, sanitizeMermaidID(e.To)))
	}

	return b.String()
}

const (
	defaultNodeColor = "#30363d"
	plainEdgeColor   = "#c9d1d9"
)

func severityColor(s patterns.Severity) string {
	switch s {
	case patterns.SeverityCritical:
		return "#8957e5"
	case patterns.SeverityError:
		return "#f85149"
	case patterns.SeverityWarning:
		return "#d29922"
	default:
		return "#1f6feb"
	}
}

func dotShape(o *overlay, id string) string {
	switch {
	case o.hub[id]:
		return "box3d"
	case o.orphan[id]:
		return "ellipse"
	case o.dead[id]:
		return "diamond"
	default:
		return "box"
	}
}

func mermaidShape(o *overlay, id string) string {
	safe := id
	switch {
	case o.hub[id]:
		return fmt.Sprintf("[[\"%s\"]]", safe)
	case o.orphan[id]:
		return fmt.Sprintf("([\"%s\"])", safe)
	case o.dead[id]:
		return fmt.Sprintf("{\"%s\"}", safe)
	default:
		return fmt.Sprintf("[\"%s\"]", safe)
	}
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

func sanitizeMermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}
