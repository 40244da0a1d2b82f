// Package policy evaluates detection results against configurable gates, the
// pass/fail surface consumed by CI.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/snarlhq/snarl/internal/history"
	"github.com/snarlhq/snarl/internal/observability"
	"github.com/snarlhq/snarl/internal/patterns"
)

// GateStatus represents the result of a single gate check.
type GateStatus string

const (
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
	GateSkipped GateStatus = "skipped"
	GateWarning GateStatus = "warning"
)

// GateSeverity indicates how a gate failure affects the overall outcome.
type GateSeverity string

const (
	SeverityCritical GateSeverity = "critical" // fail and skip remaining gates
	SeverityRequired GateSeverity = "required" // fail
	SeverityAdvisory GateSeverity = "advisory" // downgrade to warning
)

// GateResult captures the outcome of a single gate evaluation.
type GateResult struct {
	Name        string        `json:"name"`
	Status      GateStatus    `json:"status"`
	Severity    GateSeverity  `json:"severity"`
	Score       float64       `json:"score"`
	Message     string        `json:"message"`
	Details     []string      `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Gate is the interface all policy gates implement.
type Gate interface {
	Name() string
	Severity() GateSeverity
	Evaluate(ectx *EvalContext) (*GateResult, error)
}

// EvalContext provides the data gates evaluate against. Diff is nil when no
// baseline was supplied.
type EvalContext struct {
	Result   *patterns.Result
	Diff     *history.RunDiff
	Metadata map[string]string
}

// PipelineResult captures the complete gate pipeline evaluation.
type PipelineResult struct {
	Status       GateStatus    `json:"status"`
	Gates        []GateResult  `json:"gates"`
	PassedCount  int           `json:"passed_count"`
	FailedCount  int           `json:"failed_count"`
	SkippedCount int           `json:"skipped_count"`
	WarningCount int           `json:"warning_count"`
	Duration     time.Duration `json:"duration"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Summary      string        `json:"summary"`
}

// Failed reports whether the pipeline outcome should block (exit non-zero).
func (r *PipelineResult) Failed() bool { return r.Status == GateFailed }

// Pipeline orchestrates policy gates in sequence.
type Pipeline struct {
	gates []Gate
}

// NewPipeline creates a pipeline over the given gates.
func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// AddGate appends a gate to the pipeline.
func (p *Pipeline) AddGate(g Gate) {
	p.gates = append(p.gates, g)
}

// Gates returns the configured gate list.
func (p *Pipeline) Gates() []Gate { return p.gates }

// Run evaluates all gates against the provided context. A critical failure
// skips the remaining gates; an advisory failure is downgraded to a warning
// and never blocks.
func (p *Pipeline) Run(ctx context.Context, ectx *EvalContext) *PipelineResult {
	_, span := observability.StartGateSpan(ctx)
	defer span.End()

	start := time.Now()
	result := &PipelineResult{
		Status:      GatePassed,
		EvaluatedAt: start,
	}

	aborted := false
	for _, gate := range p.gates {
		if aborted {
			result.Gates = append(result.Gates, GateResult{
				Name:        gate.Name(),
				Status:      GateSkipped,
				Severity:    gate.Severity(),
				Message:     "Skipped due to critical gate failure",
				EvaluatedAt: time.Now(),
			})
			result.SkippedCount++
			continue
		}

		gateStart := time.Now()
		gr, err := gate.Evaluate(ectx)
		if err != nil {
			gr = &GateResult{
				Name:     gate.Name(),
				Status:   GateFailed,
				Severity: gate.Severity(),
				Message:  fmt.Sprintf("Gate evaluation error: %v", err),
			}
		}
		gr.Duration = time.Since(gateStart)
		gr.EvaluatedAt = gateStart

		if gr.Status == GateFailed && gr.Severity == SeverityAdvisory {
			gr.Status = GateWarning
		}

		result.Gates = append(result.Gates, *gr)
		observability.GateEvaluations.WithLabelValues(gr.Name, string(gr.Status)).Inc()

		switch gr.Status {
		case GatePassed:
			result.PassedCount++
		case GateFailed:
			result.FailedCount++
			result.Status = GateFailed
			if gr.Severity == SeverityCritical {
				aborted = true
			}
		case GateWarning:
			result.WarningCount++
		case GateSkipped:
			result.SkippedCount++
		}
	}

	if result.Status != GateFailed && result.WarningCount > 0 {
		result.Status = GateWarning
	}

	result.Duration = time.Since(start)
	result.Summary = formatSummary(result)

	observability.RecordGateResult(span, string(result.Status), result.PassedCount, result.FailedCount)
	return result
}

func formatSummary(r *PipelineResult) string {
	return fmt.Sprintf("Policy gates: %d passed, %d failed, %d warnings, %d skipped [%s]",
		r.PassedCount, r.FailedCount, r.WarningCount, r.SkippedCount, r.Status)
}
