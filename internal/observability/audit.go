package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventAnalysisStart    AuditEventType = "analysis.start"
	AuditEventAnalysisComplete AuditEventType = "analysis.complete"
	AuditEventAnalysisError    AuditEventType = "analysis.error"
	AuditEventDetectorRun      AuditEventType = "detector.run"
	AuditEventGraphConnect     AuditEventType = "graph.connect"
	AuditEventGraphSnapshot    AuditEventType = "graph.snapshot"
	AuditEventGateEvaluate     AuditEventType = "gate.evaluate"
	AuditEventRunPersist       AuditEventType = "history.persist"
	AuditEventSignatureArchive AuditEventType = "vector.archive"
	AuditEventWorkflowStart    AuditEventType = "workflow.start"
	AuditEventWorkflowEnd      AuditEventType = "workflow.end"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	WorkflowID  string                 `json:"workflow_id,omitempty"`
	RunID       string                 `json:"run_id,omitempty"`
	Detector    string                 `json:"detector,omitempty"`
	UserID      string                 `json:"user_id,omitempty"`
	Success     bool                   `json:"success"`
	DurationMS  int64                  `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger handles audit event logging.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	userID    string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
	UserID     string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		userID:    config.UserID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Fill in defaults
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}
	if event.UserID == "" {
		event.UserID = l.userID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogAnalysisStart logs the beginning of a detection pass.
func (l *AuditLogger) LogAnalysisStart(ctx context.Context, runID string, nodeCount, edgeCount int) {
	l.Log(&AuditEvent{
		EventType: AuditEventAnalysisStart,
		RunID:     runID,
		Success:   true,
		Message:   fmt.Sprintf("Analysis started: %d nodes, %d edges", nodeCount, edgeCount),
		Details: map[string]interface{}{
			"node_count": nodeCount,
			"edge_count": edgeCount,
		},
	})
}

// LogAnalysisComplete logs a finished detection pass.
func (l *AuditLogger) LogAnalysisComplete(ctx context.Context, runID string, duration time.Duration, patternCount int, cancelled bool) {
	l.Log(&AuditEvent{
		EventType:  AuditEventAnalysisComplete,
		RunID:      runID,
		Success:    !cancelled,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Analysis completed: %d patterns", patternCount),
		Details: map[string]interface{}{
			"pattern_count": patternCount,
			"cancelled":     cancelled,
		},
	})
}

// LogAnalysisError logs a failed detection pass.
func (l *AuditLogger) LogAnalysisError(ctx context.Context, runID string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventAnalysisError,
		RunID:       runID,
		Success:     false,
		Message:     "Analysis failed",
		ErrorDetail: err.Error(),
	})
}

// LogDetectorRun logs a single detector's completion.
func (l *AuditLogger) LogDetectorRun(ctx context.Context, detector string, found int, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType:  AuditEventDetectorRun,
		Detector:   detector,
		Success:    true,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Detector %s found %d patterns", detector, found),
		Details: map[string]interface{}{
			"pattern_count": found,
		},
	})
}

// LogGraphConnect logs a graph store connection.
func (l *AuditLogger) LogGraphConnect(ctx context.Context, uri, database string) {
	l.Log(&AuditEvent{
		EventType: AuditEventGraphConnect,
		Success:   true,
		Message:   fmt.Sprintf("Connected to graph store: %s", uri),
		Details: map[string]interface{}{
			"uri":      uri,
			"database": database,
		},
	})
}

// LogGraphSnapshot logs a snapshot build.
func (l *AuditLogger) LogGraphSnapshot(ctx context.Context, nodes, edges, dropped int, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType:  AuditEventGraphSnapshot,
		Success:    true,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Graph snapshot: %d nodes, %d edges", nodes, edges),
		Details: map[string]interface{}{
			"node_count":    nodes,
			"edge_count":    edges,
			"dropped_edges": dropped,
		},
	})
}

// LogGateEvaluation logs a policy gate pipeline result.
func (l *AuditLogger) LogGateEvaluation(ctx context.Context, runID, status string, passed, failed int) {
	l.Log(&AuditEvent{
		EventType: AuditEventGateEvaluate,
		RunID:     runID,
		Success:   failed == 0,
		Message:   fmt.Sprintf("Gates evaluated: %s (%d passed, %d failed)", status, passed, failed),
		Details: map[string]interface{}{
			"status": status,
			"passed": passed,
			"failed": failed,
		},
	})
}

// LogRunPersisted logs an analysis result written to history.
func (l *AuditLogger) LogRunPersisted(ctx context.Context, runID, path string) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunPersist,
		RunID:     runID,
		Success:   true,
		Message:   fmt.Sprintf("Run %s persisted", runID),
		Details: map[string]interface{}{
			"path": path,
		},
	})
}

// LogSignatureArchive logs pattern signatures written to the vector store.
func (l *AuditLogger) LogSignatureArchive(ctx context.Context, runID string, count int, collection string) {
	l.Log(&AuditEvent{
		EventType: AuditEventSignatureArchive,
		RunID:     runID,
		Success:   true,
		Message:   fmt.Sprintf("Archived %d signatures", count),
		Details: map[string]interface{}{
			"signature_count": count,
			"collection":      collection,
		},
	})
}

// LogWorkflowStart logs a workflow start event.
func (l *AuditLogger) LogWorkflowStart(ctx context.Context, workflowID, source string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Success:    true,
		Message:    fmt.Sprintf("Workflow started: source=%s", source),
		Details: map[string]interface{}{
			"source": source,
		},
	})
}

// LogWorkflowEnd logs a workflow completion event.
func (l *AuditLogger) LogWorkflowEnd(ctx context.Context, workflowID string, success bool, duration time.Duration, patternCount int) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    success,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Workflow completed: %d patterns", patternCount),
		Details: map[string]interface{}{
			"pattern_count": patternCount,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		// Return a disabled logger if not initialized
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
