package dashboard

import "time"

// Emitter records analysis lifecycle events in the live store and broadcasts
// them to connected clients. Store and hub both lock internally, so one
// Emitter can be shared across goroutines.
type Emitter struct {
	store *Store
	hub   *Hub
}

// NewEmitter creates an emitter writing to the given store and hub.
func NewEmitter(store *Store, hub *Hub) *Emitter {
	return &Emitter{store: store, hub: hub}
}

// AnalysisStarted registers a new in-flight run and broadcasts
// "analysis.started".
func (e *Emitter) AnalysisStarted(id, source string) {
	run := &AnalysisRun{
		ID:        id,
		Source:    source,
		Status:    StatusRunning,
		Detectors: make([]DetectorResult, 0),
		StartedAt: time.Now(),
	}
	e.store.CreateRun(run)

	snapshot, _ := e.store.GetRun(id)
	e.hub.Broadcast(&Event{
		Type:      "analysis.started",
		Timestamp: time.Now(),
		RunID:     id,
		Data:      snapshot,
	})
}

// DetectorFinished records one detector's findings count and broadcasts
// "detector.finished". Detectors report after the pass from the run summary,
// so an entry is created when none exists yet.
func (e *Emitter) DetectorFinished(runID, detector string, findings int) {
	result := DetectorResult{
		Detector:   detector,
		Findings:   findings,
		FinishedAt: time.Now(),
	}

	e.store.UpdateRun(runID, func(run *AnalysisRun) {
		for i := range run.Detectors {
			if run.Detectors[i].Detector == detector {
				run.Detectors[i] = result
				return
			}
		}
		run.Detectors = append(run.Detectors, result)
	})

	e.hub.Broadcast(&Event{
		Type:      "detector.finished",
		Timestamp: time.Now(),
		RunID:     runID,
		Detector:  detector,
		Data:      result,
	})
}

// AnalysisCompleted marks the run done with its final counts and broadcasts
// "analysis.completed".
func (e *Emitter) AnalysisCompleted(runID string, patternCount, nodeCount, edgeCount int, worst string, cancelled bool) {
	e.store.UpdateRun(runID, func(run *AnalysisRun) {
		now := time.Now()
		run.Status = StatusCompleted
		run.CompletedAt = &now
		run.PatternCount = patternCount
		run.NodeCount = nodeCount
		run.EdgeCount = edgeCount
		run.Worst = worst
		run.Cancelled = cancelled
	})

	run, _ := e.store.GetRun(runID)
	e.hub.Broadcast(&Event{
		Type:      "analysis.completed",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      run,
	})
}

// AnalysisFailed marks the run failed and broadcasts "analysis.failed".
func (e *Emitter) AnalysisFailed(runID string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	e.store.UpdateRun(runID, func(run *AnalysisRun) {
		now := time.Now()
		run.Status = StatusFailed
		run.CompletedAt = &now
		run.Error = msg
	})

	run, _ := e.store.GetRun(runID)
	e.hub.Broadcast(&Event{
		Type:      "analysis.failed",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      run,
	})
}

// GatesEvaluated records the policy outcome for a run and broadcasts
// "gates.evaluated".
func (e *Emitter) GatesEvaluated(runID, status string, failedGates int) {
	e.store.UpdateRun(runID, func(run *AnalysisRun) {
		run.GateStatus = status
		run.GatesFailed = failedGates
	})

	e.hub.Broadcast(&Event{
		Type:      "gates.evaluated",
		Timestamp: time.Now(),
		RunID:     runID,
		Data: map[string]interface{}{
			"status":       status,
			"gates_failed": failedGates,
		},
	})
}

// Log attaches a log line to a run and broadcasts it.
func (e *Emitter) Log(runID, detector, level, message string) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		RunID:     runID,
		Detector:  detector,
	}
	e.store.AddLog(entry)

	e.hub.Broadcast(&Event{
		Type:      "log",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      entry,
	})
}
