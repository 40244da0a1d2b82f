package patterns

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/snarlhq/snarl/internal/graph"
	"github.com/snarlhq/snarl/internal/observability"
)

// DetectPatterns pulls a snapshot from source and runs every enabled detector
// against it. The four detectors run concurrently over the shared immutable
// snapshot; their findings are merged into AllPatternTypes order, filtered by
// MinSeverity, and summarized.
//
// A failure to read the graph is fatal and returns the adapter's error with no
// result. Cancellation mid-pass is not an error: detectors stop at the next
// checkpoint and the findings collected so far come back in a Result whose
// Cancelled method reports true.
func DetectPatterns(ctx context.Context, source graph.Adapter, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := observability.StartAnalysisSpan(ctx)
	defer span.End()

	buildStart := time.Now()
	snap, err := graph.BuildSnapshot(ctx, source, cfg.ExcludedNodeTypes, cfg.ExcludedEdgeTypes)
	observability.SnapshotBuildDuration.Observe(time.Since(buildStart).Seconds())
	if err != nil {
		observability.RecordError(span, err)
		observability.AnalysisRuns.WithLabelValues("adapter_error").Inc()
		return nil, err
	}

	return run(ctx, span, snap, cfg, start)
}

// DetectOnSnapshot runs the enabled detectors against an already built
// snapshot. Exclusion filters apply when the snapshot is constructed; the
// ExcludedNodeTypes and ExcludedEdgeTypes fields of cfg are not re-applied
// here.
func DetectOnSnapshot(ctx context.Context, snap *graph.Snapshot, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := observability.StartAnalysisSpan(ctx)
	defer span.End()

	return run(ctx, span, snap, cfg, start)
}

// run executes the enabled detectors concurrently and assembles the Result.
// Each detector writes into its own slot, indexed by position in
// AllPatternTypes, so the merge preserves the report order no matter which
// goroutine finishes first.
func run(ctx context.Context, span trace.Span, snap *graph.Snapshot, cfg Config, start time.Time) (*Result, error) {
	observability.GraphNodes.Set(float64(snap.NodeCount()))
	observability.GraphEdges.Set(float64(snap.EdgeCount()))

	slots := make([][]DetectedPattern, len(AllPatternTypes))
	var deadNote string

	g, gctx := errgroup.WithContext(ctx)

	if cfg.enabled(PatternCircular) {
		g.Go(func() error {
			found, err := timeDetector(gctx, PatternCircular, func(dctx context.Context) ([]DetectedPattern, error) {
				return detectCircular(dctx, snap)
			})
			slots[0] = found
			return err
		})
	}
	if cfg.enabled(PatternOrphaned) {
		g.Go(func() error {
			found, err := timeDetector(gctx, PatternOrphaned, func(dctx context.Context) ([]DetectedPattern, error) {
				return detectOrphans(dctx, snap, cfg.DetectPartialIsolation)
			})
			slots[1] = found
			return err
		})
	}
	if cfg.enabled(PatternHub) {
		g.Go(func() error {
			found, err := timeDetector(gctx, PatternHub, func(dctx context.Context) ([]DetectedPattern, error) {
				return detectHubs(dctx, snap, cfg.HubThreshold)
			})
			slots[2] = found
			return err
		})
	}
	if cfg.enabled(PatternDead) {
		g.Go(func() error {
			found, err := timeDetector(gctx, PatternDead, func(dctx context.Context) ([]DetectedPattern, error) {
				patterns, note, err := detectDeadCode(dctx, snap, cfg.Roots)
				deadNote = note
				return patterns, err
			})
			slots[3] = found
			return err
		})
	}

	cancelled := false
	if err := g.Wait(); err != nil {
		if !errors.Is(err, ErrCancelled) {
			observability.RecordError(span, err)
			observability.AnalysisRuns.WithLabelValues("error").Inc()
			return nil, err
		}
		cancelled = true
	}

	var patterns []DetectedPattern
	for _, slot := range slots {
		patterns = append(patterns, slot...)
	}
	if cfg.MinSeverity != "" {
		patterns = filterBySeverity(patterns, cfg.MinSeverity)
	}
	if cfg.IncludeRemediation {
		for i := range patterns {
			patterns[i].Remediations = Advise(snap, patterns[i])
		}
	}
	if patterns == nil {
		patterns = []DetectedPattern{}
	}

	for _, p := range patterns {
		observability.PatternsDetected.WithLabelValues(string(p.Type), string(p.Severity)).Inc()
	}

	metadata := make(map[string]string)
	if cancelled {
		metadata["cancelled"] = "true"
	}
	if deadNote != "" {
		metadata["dead_code"] = deadNote
	}
	if snap.DroppedEdges > 0 {
		metadata["dropped_edges"] = strconv.Itoa(snap.DroppedEdges)
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	result := &Result{
		Patterns:   patterns,
		Summary:    buildSummary(patterns),
		Config:     cfg,
		AnalyzedAt: time.Now().UTC(),
		ElapsedMS:  time.Since(start).Milliseconds(),
		Metadata:   metadata,
	}

	observability.RecordAnalysisResult(span, snap.NodeCount(), snap.EdgeCount(), len(patterns), cancelled)
	observability.AnalysisDuration.Observe(time.Since(start).Seconds())
	if cancelled {
		observability.AnalysisRuns.WithLabelValues("cancelled").Inc()
	} else {
		observability.AnalysisRuns.WithLabelValues("ok").Inc()
	}

	return result, nil
}

// timeDetector wraps one detector invocation with its span and duration
// metric. Partial findings accompany ErrCancelled, so the findings are
// returned even when err is non-nil.
func timeDetector(ctx context.Context, t PatternType, fn func(context.Context) ([]DetectedPattern, error)) ([]DetectedPattern, error) {
	ctx, span := observability.StartDetectorSpan(ctx, string(t))
	defer span.End()

	detectStart := time.Now()
	found, err := fn(ctx)
	observability.DetectorDuration.WithLabelValues(string(t)).Observe(time.Since(detectStart).Seconds())
	observability.RecordDetectorResult(span, len(found))
	if err != nil && !errors.Is(err, ErrCancelled) {
		observability.RecordError(span, err)
	}
	return found, err
}

// filterBySeverity keeps findings at or above the floor, preserving order.
func filterBySeverity(patterns []DetectedPattern, min Severity) []DetectedPattern {
	kept := patterns[:0]
	for _, p := range patterns {
		if p.Severity.AtLeast(min) {
			kept = append(kept, p)
		}
	}
	return kept
}

// buildSummary counts the filtered findings. Every known type and severity
// appears in the maps, zero-valued when absent, so consumers can index without
// existence checks.
func buildSummary(patterns []DetectedPattern) Summary {
	s := Summary{
		Total:      len(patterns),
		ByType:     make(map[PatternType]int, len(AllPatternTypes)),
		BySeverity: make(map[Severity]int, len(severityRank)),
	}
	for _, t := range AllPatternTypes {
		s.ByType[t] = 0
	}
	for sev := range severityRank {
		s.BySeverity[sev] = 0
	}
	for _, p := range patterns {
		s.ByType[p.Type]++
		s.BySeverity[p.Severity]++
	}
	return s
}
