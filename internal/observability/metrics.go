package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AnalysisRuns counts detection passes by outcome.
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snarl_analysis_runs_total",
			Help: "Total number of detection passes",
		},
		[]string{"outcome"},
	)

	// AnalysisDuration observes wall-clock time of full detection passes.
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snarl_analysis_duration_seconds",
			Help:    "Duration of full detection passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DetectorDuration observes per-detector runtime.
	DetectorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snarl_detector_duration_seconds",
			Help:    "Duration of individual detectors",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	// PatternsDetected counts reported patterns by type and severity.
	PatternsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snarl_patterns_detected_total",
			Help: "Total number of detected patterns",
		},
		[]string{"pattern_type", "severity"},
	)

	// GraphNodes tracks the node count of the most recent snapshot.
	GraphNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snarl_graph_nodes",
			Help: "Node count of the most recently analyzed snapshot",
		},
	)

	// GraphEdges tracks the edge count of the most recent snapshot.
	GraphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snarl_graph_edges",
			Help: "Edge count of the most recently analyzed snapshot",
		},
	)

	// SnapshotBuildDuration observes time spent pulling graphs into snapshots.
	SnapshotBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snarl_snapshot_build_duration_seconds",
			Help:    "Duration of snapshot builds from graph adapters",
			Buckets: prometheus.DefBuckets,
		},
	)

	// GateEvaluations counts policy gate results by gate name and status.
	GateEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snarl_gate_evaluations_total",
			Help: "Total number of policy gate evaluations",
		},
		[]string{"gate", "status"},
	)

	// RunsPersisted counts analysis results written to the history store.
	RunsPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snarl_runs_persisted_total",
			Help: "Total number of analysis runs persisted to history",
		},
	)

	// SignaturesArchived counts pattern signatures upserted to the vector store.
	SignaturesArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snarl_signatures_archived_total",
			Help: "Total number of pattern signatures archived",
		},
	)

	// EventClients tracks connected live event stream subscribers.
	EventClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snarl_event_clients",
			Help: "Currently connected live event stream clients",
		},
	)
)

func init() {
	prometheus.MustRegister(AnalysisRuns)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(DetectorDuration)
	prometheus.MustRegister(PatternsDetected)
	prometheus.MustRegister(GraphNodes)
	prometheus.MustRegister(GraphEdges)
	prometheus.MustRegister(SnapshotBuildDuration)
	prometheus.MustRegister(GateEvaluations)
	prometheus.MustRegister(RunsPersisted)
	prometheus.MustRegister(SignaturesArchived)
	prometheus.MustRegister(EventClients)
}

// MetricsHandler returns an http.Handler serving the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
