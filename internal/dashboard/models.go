package dashboard

import "time"

// AnalysisStatus represents the state of a live analysis run.
type AnalysisStatus string

const (
	StatusRunning   AnalysisStatus = "running"
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

// AnalysisRun is the live view of one detection pass, filled in as lifecycle
// events arrive.
type AnalysisRun struct {
	ID           string           `json:"id"`
	Source       string           `json:"source,omitempty"`
	Status       AnalysisStatus   `json:"status"`
	Detectors    []DetectorResult `json:"detectors"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	Error        string           `json:"error,omitempty"`
	NodeCount    int              `json:"node_count"`
	EdgeCount    int              `json:"edge_count"`
	PatternCount int              `json:"pattern_count"`
	Worst        string           `json:"worst,omitempty"`
	Cancelled    bool             `json:"cancelled,omitempty"`
	GateStatus   string           `json:"gate_status,omitempty"`
	GatesFailed  int              `json:"gates_failed,omitempty"`
}

// DetectorResult is one detector's contribution to a live run.
type DetectorResult struct {
	Detector   string    `json:"detector"`
	Findings   int       `json:"findings"`
	FinishedAt time.Time `json:"finished_at"`
}

// LiveStats aggregates the in-memory runs.
type LiveStats struct {
	TotalRuns     int     `json:"total_runs"`
	ActiveRuns    int     `json:"active_runs"`
	CompletedRuns int     `json:"completed_runs"`
	FailedRuns    int     `json:"failed_runs"`
	TotalFindings int     `json:"total_findings"`
	AvgDuration   float64 `json:"avg_duration_seconds"`
	SuccessRate   float64 `json:"success_rate"`
	Clients       int     `json:"clients"`
}

// Event is a single server-sent message.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
	Detector  string      `json:"detector,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// LogEntry is one log line attached to a live run.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	Detector  string    `json:"detector,omitempty"`
}
