// Package temporal schedules detection passes as Temporal workflows: detect,
// gate, persist, archive, with shared dependencies injected at worker setup.
package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(AnalysisWorkflow)
	w.RegisterActivity(RunDetectionActivity)
	w.RegisterActivity(EvaluateGatesActivity)
	w.RegisterActivity(PersistRunActivity)
	w.RegisterActivity(ArchiveSignaturesActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}
