package policy

import (
	"fmt"
	"sort"

	"github.com/snarlhq/snarl/internal/patterns"
)

// SeverityCeilingGate fails when any finding sits at or above a severity.
type SeverityCeilingGate struct {
	Ceiling  patterns.Severity
	severity GateSeverity
}

func NewSeverityCeilingGate(ceiling patterns.Severity, severity GateSeverity) *SeverityCeilingGate {
	return &SeverityCeilingGate{Ceiling: ceiling, severity: severity}
}

func (g *SeverityCeilingGate) Name() string           { return "severity_ceiling" }
func (g *SeverityCeilingGate) Severity() GateSeverity { return g.severity }
func (g *SeverityCeilingGate) Evaluate(ectx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if ectx.Result == nil {
		r.Status = GateSkipped
		r.Message = "No result to evaluate"
		return r, nil
	}

	var offending []patterns.DetectedPattern
	for _, p := range ectx.Result.Patterns {
		if p.Severity.AtLeast(g.Ceiling) {
			offending = append(offending, p)
		}
	}

	total := len(ectx.Result.Patterns)
	r.Score = 1.0
	if total > 0 {
		r.Score = 1.0 - float64(len(offending))/float64(total)
	}

	if len(offending) == 0 {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("No patterns at or above %s", g.Ceiling)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d pattern(s) at or above %s", len(offending), g.Ceiling)
		for _, p := range offending {
			r.Details = append(r.Details, fmt.Sprintf("[%s] %s: %s", p.Severity, p.ID, p.Description))
		}
	}
	return r, nil
}

// TotalLimitGate fails when the total finding count exceeds a limit.
type TotalLimitGate struct {
	Max      int
	severity GateSeverity
}

func NewTotalLimitGate(max int, severity GateSeverity) *TotalLimitGate {
	return &TotalLimitGate{Max: max, severity: severity}
}

func (g *TotalLimitGate) Name() string           { return "total_limit" }
func (g *TotalLimitGate) Severity() GateSeverity { return g.severity }
func (g *TotalLimitGate) Evaluate(ectx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if ectx.Result == nil {
		r.Status = GateSkipped
		r.Message = "No result to evaluate"
		return r, nil
	}

	total := ectx.Result.Summary.Total
	r.Score = 1.0
	if total > 0 && g.Max >= 0 {
		r.Score = float64(g.Max) / float64(total)
		if r.Score > 1 {
			r.Score = 1
		}
	}

	if total <= g.Max {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Total %d within limit %d", total, g.Max)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Total %d exceeds limit %d", total, g.Max)
	}
	return r, nil
}

// TypeLimitGate caps the finding count per pattern type. Types without a
// configured limit are unconstrained.
type TypeLimitGate struct {
	Limits   map[patterns.PatternType]int
	severity GateSeverity
}

func NewTypeLimitGate(limits map[patterns.PatternType]int, severity GateSeverity) *TypeLimitGate {
	return &TypeLimitGate{Limits: limits, severity: severity}
}

func (g *TypeLimitGate) Name() string           { return "type_limit" }
func (g *TypeLimitGate) Severity() GateSeverity { return g.severity }
func (g *TypeLimitGate) Evaluate(ectx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if ectx.Result == nil {
		r.Status = GateSkipped
		r.Message = "No result to evaluate"
		return r, nil
	}
	if len(g.Limits) == 0 {
		r.Status = GateSkipped
		r.Message = "No type limits configured"
		return r, nil
	}

	var violations []string
	for _, t := range patterns.AllPatternTypes {
		limit, ok := g.Limits[t]
		if !ok {
			continue
		}
		count := ectx.Result.Summary.ByType[t]
		if count > limit {
			violations = append(violations, fmt.Sprintf("%s: %d exceeds limit %d", t, count, limit))
		}
	}
	sort.Strings(violations)

	if len(violations) == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("All %d type limit(s) respected", len(g.Limits))
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d type limit(s) exceeded", len(violations))
		r.Details = violations
	}
	return r, nil
}

// RegressionGate fails when the diff against the baseline introduced new
// findings. Without a baseline the gate is skipped, not failed.
type RegressionGate struct {
	severity GateSeverity
}

func NewRegressionGate(severity GateSeverity) *RegressionGate {
	return &RegressionGate{severity: severity}
}

func (g *RegressionGate) Name() string           { return "regression" }
func (g *RegressionGate) Severity() GateSeverity { return g.severity }
func (g *RegressionGate) Evaluate(ectx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if ectx.Diff == nil {
		r.Status = GateSkipped
		r.Message = "No baseline to compare against"
		return r, nil
	}

	added := ectx.Diff.Summary.AddedCount
	if added == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("No new findings since %s", ectx.Diff.OldID)
		if ectx.Diff.Summary.ResolvedCount > 0 {
			r.Message += fmt.Sprintf(" (%d resolved)", ectx.Diff.Summary.ResolvedCount)
		}
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d new finding(s) since %s", added, ectx.Diff.OldID)
		for _, p := range ectx.Diff.Added {
			r.Details = append(r.Details, fmt.Sprintf("[%s] %s: %s", p.Severity, p.ID, p.Description))
		}
	}
	return r, nil
}
