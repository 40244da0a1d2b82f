// Package patterns implements structural anti-pattern detection over a graph
// snapshot: circular dependencies, orphaned nodes, hub nodes, and dead code.
package patterns

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/snarlhq/snarl/internal/graph"
)

// PatternType discriminates the detected-pattern variants.
type PatternType string

const (
	PatternCircular PatternType = "circular_dependency"
	PatternOrphaned PatternType = "orphaned_node"
	PatternHub      PatternType = "hub_node"
	PatternDead     PatternType = "dead_code"
)

// AllPatternTypes lists the variants in report order. Merged results group by
// type in exactly this order.
var AllPatternTypes = []PatternType{PatternCircular, PatternOrphaned, PatternHub, PatternDead}

// ParsePatternType resolves a pattern type name.
func ParsePatternType(s string) (PatternType, bool) {
	for _, t := range AllPatternTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Severity grades a finding. The order is strict: info < warning < error <
// critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Rank returns the numeric position of the severity; higher is worse.
func (s Severity) Rank() int { return severityRank[s] }

// Valid reports whether the severity is one of the four known levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether the severity is at or above the given floor.
func (s Severity) AtLeast(min Severity) bool { return s.Rank() >= min.Rank() }

// ParseSeverity resolves a severity name.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	return sev, sev.Valid()
}

// ActionType tags a remediation suggestion.
type ActionType string

const (
	ActionRemove      ActionType = "remove"
	ActionRefactor    ActionType = "refactor"
	ActionDocument    ActionType = "document"
	ActionSplit       ActionType = "split"
	ActionMerge       ActionType = "merge"
	ActionInvestigate ActionType = "investigate"
)

// RemediationSuggestion is one ranked action for addressing a pattern.
// Priority 1 is highest; ties are allowed.
type RemediationSuggestion struct {
	Action      ActionType `json:"action"`
	Description string     `json:"description"`
	Steps       []string   `json:"steps,omitempty"`
	Priority    int        `json:"priority"`
	EffortHours float64    `json:"effort_hours,omitempty"`
}

// DetectedPattern is a closed tagged union: Type names the variant and exactly
// one of the variant pointers is set. Consumers switch on Type rather than
// probing the pointers.
type DetectedPattern struct {
	ID           string                  `json:"id"`
	Type         PatternType             `json:"type"`
	Severity     Severity                `json:"severity"`
	Description  string                  `json:"description"`
	Nodes        []string                `json:"nodes"`
	Edges        []graph.Edge            `json:"edges,omitempty"`
	Remediations []RemediationSuggestion `json:"remediations,omitempty"`
	Metadata     map[string]string       `json:"metadata,omitempty"`
	DetectedAt   time.Time               `json:"detected_at"`

	Circular *CircularDetail `json:"circular,omitempty"`
	Orphan   *OrphanDetail   `json:"orphan,omitempty"`
	Hub      *HubDetail      `json:"hub,omitempty"`
	Dead     *DeadCodeDetail `json:"dead_code,omitempty"`
}

// CircularDetail describes one elementary cycle. Cycle starts at the
// lexicographically smallest member and repeats it at the end; Length is the
// number of distinct nodes (1 for a self-loop).
type CircularDetail struct {
	Cycle  []string `json:"cycle"`
	Length int      `json:"length"`
}

// OrphanDetail describes an isolated or partially isolated node. At least one
// of the two flags is true.
type OrphanDetail struct {
	NodeID     string `json:"node_id"`
	NoIncoming bool   `json:"no_incoming"`
	NoOutgoing bool   `json:"no_outgoing"`
}

// HubDetail describes an over-connected node. Threshold records the limit in
// force when the pattern was found, so reports stay auditable when the
// configuration changes between runs.
type HubDetail struct {
	NodeID    string `json:"node_id"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
	Total     int    `json:"total"`
	Threshold int    `json:"threshold"`
}

// DeadCodeDetail aggregates every node unreachable from the root set into a
// single finding.
type DeadCodeDetail struct {
	UnreachableNodes []string `json:"unreachable_nodes"`
	Roots            []string `json:"roots"`
}

// Summary holds exact counts over the filtered pattern list.
type Summary struct {
	Total      int                 `json:"total"`
	ByType     map[PatternType]int `json:"by_type"`
	BySeverity map[Severity]int    `json:"by_severity"`
}

// Result is the outcome of one detection pass. Patterns are grouped by type in
// AllPatternTypes order, then by detection order within a type. Identical
// snapshot and config always produce identical patterns and counts; only the
// timestamps vary.
type Result struct {
	Patterns   []DetectedPattern `json:"patterns"`
	Summary    Summary           `json:"summary"`
	Config     Config            `json:"config"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Cancelled reports whether the pass was cut short by cancellation and the
// result holds only the findings collected up to that point.
func (r *Result) Cancelled() bool {
	return r.Metadata["cancelled"] == "true"
}

// patternID derives a stable identifier from the finding's content, so the
// same finding carries the same ID across runs.
func patternID(prefix, key string) string {
	sum := sha256.Sum256([]byte(key))
	return prefix + "-" + hex.EncodeToString(sum[:6])
}
