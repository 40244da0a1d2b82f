package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AnalysisInput holds the workflow parameters.
type AnalysisInput struct {
	// Source overrides the configured graph source ("neo4j" or "file").
	Source string
	// InputPath is the graph document path when Source is "file".
	InputPath string
	// Tag to attach to the saved run (optional).
	Tag string
	// Baseline is the run ID or tag to diff and gate against (optional).
	Baseline string
}

// AnalysisOutput holds the workflow result.
type AnalysisOutput struct {
	RunID        string
	PatternCount int
	NodeCount    int
	EdgeCount    int
	Worst        string
	Cancelled    bool
	GateStatus   string
	GatesFailed  int
	DiffSummary  string
	Archived     int
}

// AnalysisWorkflow runs one detection pass end to end: detect, evaluate
// policy gates, persist the run, archive finding signatures. A failed gate is
// an outcome, not an error; the workflow only fails when an activity does.
func AnalysisWorkflow(ctx workflow.Context, input AnalysisInput) (*AnalysisOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// The workflow execution ID doubles as the live run ID on the dashboard.
	liveID := workflow.GetInfo(ctx).WorkflowExecution.ID

	// Step 1: detection
	var detection DetectionResult
	detInput := DetectionInput{
		LiveID:    liveID,
		Source:    input.Source,
		InputPath: input.InputPath,
	}
	if err := workflow.ExecuteActivity(ctx, RunDetectionActivity, detInput).Get(ctx, &detection); err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}

	// Step 2: policy gates
	var gates GateOutcome
	gateInput := GateInput{
		LiveID:     liveID,
		ResultJSON: detection.ResultJSON,
		Baseline:   input.Baseline,
	}
	if err := workflow.ExecuteActivity(ctx, EvaluateGatesActivity, gateInput).Get(ctx, &gates); err != nil {
		return nil, fmt.Errorf("gates: %w", err)
	}

	// Step 3: persist to history
	var persisted PersistOutcome
	persistInput := PersistInput{
		LiveID:     liveID,
		ResultJSON: detection.ResultJSON,
		Source:     detection.Source,
		NodeCount:  detection.NodeCount,
		EdgeCount:  detection.EdgeCount,
		Tag:        input.Tag,
		Baseline:   input.Baseline,
		GateStatus: gates.Status,
	}
	if err := workflow.ExecuteActivity(ctx, PersistRunActivity, persistInput).Get(ctx, &persisted); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}

	// Step 4: archive signatures, best effort. The run is already persisted;
	// a dead vector backend should not fail the whole pass.
	var archived ArchiveOutcome
	archiveInput := ArchiveInput{
		RunID:      persisted.RunID,
		ResultJSON: detection.ResultJSON,
	}
	if err := workflow.ExecuteActivity(ctx, ArchiveSignaturesActivity, archiveInput).Get(ctx, &archived); err != nil {
		workflow.GetLogger(ctx).Warn("Signature archive failed", "run_id", persisted.RunID, "error", err)
	}

	return &AnalysisOutput{
		RunID:        persisted.RunID,
		PatternCount: detection.PatternCount,
		NodeCount:    detection.NodeCount,
		EdgeCount:    detection.EdgeCount,
		Worst:        detection.Worst,
		Cancelled:    detection.Cancelled,
		GateStatus:   gates.Status,
		GatesFailed:  gates.FailedCount,
		DiffSummary:  persisted.DiffSummary,
		Archived:     archived.Archived,
	}, nil
}
