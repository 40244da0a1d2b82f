package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/snarlhq/snarl/internal/config"
	"github.com/snarlhq/snarl/internal/dashboard"
	"github.com/snarlhq/snarl/internal/graph"
	"github.com/snarlhq/snarl/internal/graph/memory"
	"github.com/snarlhq/snarl/internal/graph/neo4j"
	"github.com/snarlhq/snarl/internal/history"
	"github.com/snarlhq/snarl/internal/observability"
	"github.com/snarlhq/snarl/internal/patterns"
	"github.com/snarlhq/snarl/internal/policy"
	"github.com/snarlhq/snarl/internal/vector"
)

// DetectionInput selects the graph source for one detection pass.
type DetectionInput struct {
	// LiveID identifies the pass on the live dashboard.
	LiveID string
	// Source overrides the configured graph source when non-empty.
	Source string
	// InputPath overrides the configured graph file when Source is "file".
	InputPath string
}

// DetectionResult is the serializable detection outcome passed between
// activities.
type DetectionResult struct {
	ResultJSON   string
	Source       string
	NodeCount    int
	EdgeCount    int
	PatternCount int
	Worst        string
	Cancelled    bool
}

// GateInput carries the detection result into gate evaluation.
type GateInput struct {
	LiveID     string
	ResultJSON string
	// Baseline is a run ID, tag, or "latest"; empty skips regression gating.
	Baseline string
}

// GateOutcome is the serializable gate pipeline outcome.
type GateOutcome struct {
	PipelineJSON string
	Status       string
	FailedCount  int
}

// PersistInput carries everything the history record needs.
type PersistInput struct {
	LiveID     string
	ResultJSON string
	Source     string
	NodeCount  int
	EdgeCount  int
	Tag        string
	Baseline   string
	GateStatus string
}

// PersistOutcome reports the saved run.
type PersistOutcome struct {
	RunID       string
	DiffSummary string
}

// ArchiveInput carries the persisted run into signature archival.
type ArchiveInput struct {
	RunID      string
	ResultJSON string
}

// ArchiveOutcome reports how many signatures were written.
type ArchiveOutcome struct {
	Archived int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Config  *config.Config
	History *history.Store
	// Vectors is optional; nil disables signature archival.
	Vectors vector.Repository
	// Events is optional; nil disables live dashboard events.
	Events *dashboard.Emitter
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// RunDetectionActivity opens the configured graph source, runs the detection
// engine, and returns the result as JSON together with its key scalars.
func RunDetectionActivity(ctx context.Context, input DetectionInput) (DetectionResult, error) {
	source := input.Source
	if source == "" {
		source = deps.Config.Graph.Source
	}

	if deps.Events != nil {
		deps.Events.AnalysisStarted(input.LiveID, source)
	}

	adapter, err := openAdapter(ctx, source, input.InputPath)
	if err != nil {
		return DetectionResult{}, failDetection(ctx, input.LiveID, err)
	}
	defer adapter.Close(ctx)

	cfg := deps.Config.Detection.PatternsConfig()
	snap, err := graph.BuildSnapshot(ctx, adapter, cfg.ExcludedNodeTypes, cfg.ExcludedEdgeTypes)
	if err != nil {
		return DetectionResult{}, failDetection(ctx, input.LiveID, err)
	}
	observability.Audit().LogAnalysisStart(ctx, input.LiveID, snap.NodeCount(), snap.EdgeCount())

	result, err := patterns.DetectOnSnapshot(ctx, snap, cfg)
	if err != nil {
		return DetectionResult{}, failDetection(ctx, input.LiveID, err)
	}
	observability.Audit().LogAnalysisComplete(ctx, input.LiveID,
		time.Duration(result.ElapsedMS)*time.Millisecond, result.Summary.Total, result.Cancelled())

	worst := worstOf(result)
	if deps.Events != nil {
		for _, t := range patterns.AllPatternTypes {
			deps.Events.DetectorFinished(input.LiveID, string(t), result.Summary.ByType[t])
		}
		deps.Events.AnalysisCompleted(input.LiveID, result.Summary.Total,
			snap.NodeCount(), snap.EdgeCount(), worst, result.Cancelled())
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("marshal result: %w", err)
	}

	return DetectionResult{
		ResultJSON:   string(resultJSON),
		Source:       source,
		NodeCount:    snap.NodeCount(),
		EdgeCount:    snap.EdgeCount(),
		PatternCount: result.Summary.Total,
		Worst:        worst,
		Cancelled:    result.Cancelled(),
	}, nil
}

// EvaluateGatesActivity runs the configured policy gates over the detection
// result, diffing against the baseline run when one is named. A failing gate
// is reported in the outcome, not as an activity error.
func EvaluateGatesActivity(ctx context.Context, input GateInput) (GateOutcome, error) {
	var result patterns.Result
	if err := json.Unmarshal([]byte(input.ResultJSON), &result); err != nil {
		return GateOutcome{}, fmt.Errorf("unmarshal result: %w", err)
	}

	var diff *history.RunDiff
	if input.Baseline != "" {
		baseline, err := resolveRun(deps.History, input.Baseline)
		if err != nil {
			return GateOutcome{}, fmt.Errorf("baseline %q: %w", input.Baseline, err)
		}
		diff = history.Diff(baseline, &history.Run{Result: &result})
	}

	pipeline, err := policy.BuildPipeline(&deps.Config.Policy)
	if err != nil {
		return GateOutcome{}, fmt.Errorf("build pipeline: %w", err)
	}

	pres := pipeline.Run(ctx, &policy.EvalContext{Result: &result, Diff: diff})
	observability.Audit().LogGateEvaluation(ctx, input.LiveID, string(pres.Status), pres.PassedCount, pres.FailedCount)
	if deps.Events != nil {
		deps.Events.GatesEvaluated(input.LiveID, string(pres.Status), pres.FailedCount)
	}

	pipelineJSON, err := json.Marshal(pres)
	if err != nil {
		return GateOutcome{}, fmt.Errorf("marshal pipeline result: %w", err)
	}

	return GateOutcome{
		PipelineJSON: string(pipelineJSON),
		Status:       string(pres.Status),
		FailedCount:  pres.FailedCount,
	}, nil
}

// PersistRunActivity saves the detection result to the history store and
// summarizes the diff against the baseline when one is named.
func PersistRunActivity(ctx context.Context, input PersistInput) (PersistOutcome, error) {
	var result patterns.Result
	if err := json.Unmarshal([]byte(input.ResultJSON), &result); err != nil {
		return PersistOutcome{}, fmt.Errorf("unmarshal result: %w", err)
	}

	// Resolve before saving so a "latest" baseline means the previous run,
	// not the one being written.
	var baseline *history.Run
	if input.Baseline != "" {
		run, err := resolveRun(deps.History, input.Baseline)
		if err != nil {
			return PersistOutcome{}, fmt.Errorf("baseline %q: %w", input.Baseline, err)
		}
		baseline = run
	}

	metadata := map[string]string{"workflow_id": input.LiveID}
	if input.GateStatus != "" {
		metadata["gate_status"] = input.GateStatus
	}

	run, err := deps.History.Save(&result, history.SaveOptions{
		Tag:       input.Tag,
		Source:    input.Source,
		NodeCount: input.NodeCount,
		EdgeCount: input.EdgeCount,
		Metadata:  metadata,
	})
	if err != nil {
		return PersistOutcome{}, fmt.Errorf("save run: %w", err)
	}

	observability.Audit().LogRunPersisted(ctx, run.ID, deps.Config.History.Dir)

	out := PersistOutcome{RunID: run.ID}
	if baseline != nil {
		d := history.Diff(baseline, run)
		out.DiffSummary = fmt.Sprintf("vs %s: %d added, %d resolved, net %+d",
			baseline.ID, d.Summary.AddedCount, d.Summary.ResolvedCount, d.Summary.TotalDelta)
	}

	if deps.Events != nil {
		deps.Events.Log(input.LiveID, "", "info", fmt.Sprintf("run %s saved", run.ID))
	}
	return out, nil
}

// ArchiveSignaturesActivity writes a signature point for every finding in the
// persisted run. Without a configured vector backend it is a no-op.
func ArchiveSignaturesActivity(ctx context.Context, input ArchiveInput) (ArchiveOutcome, error) {
	if deps.Vectors == nil {
		return ArchiveOutcome{}, nil
	}

	var result patterns.Result
	if err := json.Unmarshal([]byte(input.ResultJSON), &result); err != nil {
		return ArchiveOutcome{}, fmt.Errorf("unmarshal result: %w", err)
	}

	if err := deps.Vectors.EnsureCollection(ctx); err != nil {
		return ArchiveOutcome{}, fmt.Errorf("ensure collection: %w", err)
	}

	n, err := deps.Vectors.UpsertResult(ctx, input.RunID, &result)
	if err != nil {
		return ArchiveOutcome{}, fmt.Errorf("upsert signatures: %w", err)
	}
	observability.Audit().LogSignatureArchive(ctx, input.RunID, n, deps.Config.Vector.Collection)
	return ArchiveOutcome{Archived: n}, nil
}

// openAdapter builds the graph adapter for the named source.
func openAdapter(ctx context.Context, source, inputPath string) (graph.Adapter, error) {
	switch source {
	case "file":
		path := inputPath
		if path == "" {
			path = deps.Config.Graph.File
		}
		return memory.LoadFile(path)
	case "neo4j":
		g := deps.Config.Graph
		return neo4j.NewAdapter(ctx, neo4j.Config{
			URI:      g.URI,
			Username: g.Username,
			Password: g.Password,
			Database: g.Database,
		})
	default:
		return nil, fmt.Errorf("unknown graph source %q", source)
	}
}

// resolveRun looks a baseline up by ID first, then by tag; "latest" picks the
// most recent saved run.
func resolveRun(store *history.Store, ref string) (*history.Run, error) {
	if ref == "latest" {
		return store.Latest()
	}
	run, err := store.Load(ref)
	if err == nil {
		return run, nil
	}
	if byTag, tagErr := store.FindByTag(ref); tagErr == nil {
		return byTag, nil
	}
	return nil, err
}

func failDetection(ctx context.Context, liveID string, err error) error {
	observability.Audit().LogAnalysisError(ctx, liveID, err)
	if deps.Events != nil {
		deps.Events.AnalysisFailed(liveID, err)
	}
	return err
}

func worstOf(result *patterns.Result) string {
	worst := ""
	rank := -1
	for _, p := range result.Patterns {
		if p.Severity.Rank() > rank {
			worst = string(p.Severity)
			rank = p.Severity.Rank()
		}
	}
	return worst
}
