package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ==================== AuditConfig Tests ====================

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()
	if !cfg.Enabled {
		t.Fatal("expected enabled by default")
	}
	if cfg.OutputPath != "stdout" {
		t.Fatalf("expected stdout, got %s", cfg.OutputPath)
	}
}

// ==================== AuditLogger Tests ====================

func TestAuditLogger_New_Stdout(t *testing.T) {
	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestAuditLogger_New_Stderr(t *testing.T) {
	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stderr",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestAuditLogger_New_File(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: logPath,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Fatal("expected log file to be created")
	}
}

func TestAuditLogger_New_NilConfig(t *testing.T) {
	l, err := NewAuditLogger(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger with default config")
	}
}

func TestAuditLogger_Log_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: false,
	}

	err := l.Log(&AuditEvent{EventType: AuditEventAnalysisStart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() > 0 {
		t.Fatal("expected no output when disabled")
	}
}

func TestAuditLogger_Log_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:    &buf,
		sessionID: "test-session",
		userID:    "test-user",
		enabled:   true,
	}

	err := l.Log(&AuditEvent{
		EventType: AuditEventDetectorRun,
		Detector:  "circular_dependency",
		Success:   true,
		Message:   "test message",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Parse output
	var event AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if event.EventType != AuditEventDetectorRun {
		t.Fatalf("expected detector.run, got %s", event.EventType)
	}
	if event.Detector != "circular_dependency" {
		t.Fatalf("expected circular_dependency, got %s", event.Detector)
	}
	if event.SessionID != "test-session" {
		t.Fatalf("expected test-session, got %s", event.SessionID)
	}
	if event.UserID != "test-user" {
		t.Fatalf("expected test-user, got %s", event.UserID)
	}
}

func TestAuditLogger_Log_FillsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: true,
	}

	before := time.Now().UTC()
	l.Log(&AuditEvent{EventType: AuditEventAnalysisStart})
	after := time.Now().UTC()

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Fatal("timestamp should be set automatically")
	}
}

func TestAuditLogger_SessionID_Generated(t *testing.T) {
	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})

	if l.sessionID == "" {
		t.Fatal("expected auto-generated session ID")
	}
	if !strings.HasPrefix(l.sessionID, "session-") {
		t.Fatalf("expected session- prefix, got %s", l.sessionID)
	}
}

// ==================== Convenience Methods Tests ====================

func TestAuditLogger_LogAnalysisStart(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogAnalysisStart(context.Background(), "run-123", 50, 120)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventAnalysisStart {
		t.Fatalf("expected analysis.start, got %s", event.EventType)
	}
	if event.RunID != "run-123" {
		t.Fatalf("expected run-123, got %s", event.RunID)
	}
	if event.Details["node_count"].(float64) != 50 {
		t.Fatalf("expected 50 nodes, got %v", event.Details["node_count"])
	}
}

func TestAuditLogger_LogAnalysisComplete(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogAnalysisComplete(context.Background(), "run-123", 5*time.Second, 7, false)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventAnalysisComplete {
		t.Fatalf("expected analysis.complete, got %s", event.EventType)
	}
	if !event.Success {
		t.Fatal("expected success=true when not cancelled")
	}
	if event.DurationMS != 5000 {
		t.Fatalf("expected 5000ms, got %d", event.DurationMS)
	}
	if event.Details["pattern_count"].(float64) != 7 {
		t.Fatalf("expected 7 patterns, got %v", event.Details["pattern_count"])
	}
}

func TestAuditLogger_LogAnalysisComplete_Cancelled(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogAnalysisComplete(context.Background(), "run-123", time.Second, 2, true)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.Success {
		t.Fatal("expected success=false for cancelled run")
	}
	if event.Details["cancelled"].(bool) != true {
		t.Fatalf("expected cancelled=true, got %v", event.Details["cancelled"])
	}
}

func TestAuditLogger_LogAnalysisError(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogAnalysisError(context.Background(), "run-123",
		&testError{msg: "adapter unreachable"})

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventAnalysisError {
		t.Fatalf("expected analysis.error, got %s", event.EventType)
	}
	if event.Success {
		t.Fatal("expected success=false for error")
	}
	if event.ErrorDetail != "adapter unreachable" {
		t.Fatalf("expected error detail, got %s", event.ErrorDetail)
	}
}

func TestAuditLogger_LogDetectorRun(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogDetectorRun(context.Background(), "hub_node", 3, 100*time.Millisecond)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventDetectorRun {
		t.Fatalf("expected detector.run, got %s", event.EventType)
	}
	if event.Detector != "hub_node" {
		t.Fatalf("expected hub_node, got %s", event.Detector)
	}
	if event.Details["pattern_count"].(float64) != 3 {
		t.Fatalf("expected 3 patterns, got %v", event.Details["pattern_count"])
	}
}

func TestAuditLogger_LogGraphConnect(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogGraphConnect(context.Background(), "bolt://localhost:7687", "neo4j")

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventGraphConnect {
		t.Fatalf("expected graph.connect, got %s", event.EventType)
	}
	if event.Details["uri"] != "bolt://localhost:7687" {
		t.Fatalf("expected uri, got %v", event.Details["uri"])
	}
}

func TestAuditLogger_LogGraphSnapshot(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogGraphSnapshot(context.Background(), 100, 250, 3, time.Second)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventGraphSnapshot {
		t.Fatalf("expected graph.snapshot, got %s", event.EventType)
	}
	if event.Details["dropped_edges"].(float64) != 3 {
		t.Fatalf("expected 3 dropped edges, got %v", event.Details["dropped_edges"])
	}
}

func TestAuditLogger_LogGateEvaluation(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogGateEvaluation(context.Background(), "run-123", "failed", 2, 1)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventGateEvaluate {
		t.Fatalf("expected gate.evaluate, got %s", event.EventType)
	}
	if event.Success {
		t.Fatal("expected success=false when gates fail")
	}
	if event.Details["failed"].(float64) != 1 {
		t.Fatalf("expected 1 failure, got %v", event.Details["failed"])
	}
}

func TestAuditLogger_LogRunPersisted(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogRunPersisted(context.Background(), "run-123", "/data/runs/ab/ab12.json")

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventRunPersist {
		t.Fatalf("expected history.persist, got %s", event.EventType)
	}
	if event.RunID != "run-123" {
		t.Fatalf("expected run-123, got %s", event.RunID)
	}
}

func TestAuditLogger_LogSignatureArchive(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogSignatureArchive(context.Background(), "run-123", 5, "snarl_signatures")

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventSignatureArchive {
		t.Fatalf("expected vector.archive, got %s", event.EventType)
	}
	if event.Details["signature_count"].(float64) != 5 {
		t.Fatalf("expected 5 signatures, got %v", event.Details["signature_count"])
	}
}

func TestAuditLogger_LogWorkflowStart(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogWorkflowStart(context.Background(), "wf-456", "neo4j")

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventWorkflowStart {
		t.Fatalf("expected workflow.start, got %s", event.EventType)
	}
	if event.WorkflowID != "wf-456" {
		t.Fatalf("expected wf-456, got %s", event.WorkflowID)
	}
}

func TestAuditLogger_LogWorkflowEnd(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogWorkflowEnd(context.Background(), "wf-456", true, 10*time.Minute, 12)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventWorkflowEnd {
		t.Fatalf("expected workflow.end, got %s", event.EventType)
	}
	if !event.Success {
		t.Fatal("expected success=true")
	}
}

func TestAuditLogger_Close_File(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: logPath,
	})

	l.Log(&AuditEvent{EventType: AuditEventAnalysisStart})
	err := l.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify file exists and has content
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log content")
	}
}

func TestAuditLogger_Close_Stdout(t *testing.T) {
	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})

	// Should not error when closing stdout
	err := l.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ==================== Global Logger Tests ====================

func TestAudit_DisabledByDefault(t *testing.T) {
	// Reset global state
	globalAuditLogger = nil

	l := Audit()
	if l.enabled {
		t.Fatal("expected disabled logger when not initialized")
	}
}

// ==================== Event Type Constants ====================

func TestAuditEventTypes(t *testing.T) {
	types := []AuditEventType{
		AuditEventAnalysisStart,
		AuditEventAnalysisComplete,
		AuditEventAnalysisError,
		AuditEventDetectorRun,
		AuditEventGraphConnect,
		AuditEventGraphSnapshot,
		AuditEventGateEvaluate,
		AuditEventRunPersist,
		AuditEventSignatureArchive,
		AuditEventWorkflowStart,
		AuditEventWorkflowEnd,
	}

	for _, et := range types {
		if et == "" {
			t.Fatal("event type should not be empty")
		}
	}
}

// Helper error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
