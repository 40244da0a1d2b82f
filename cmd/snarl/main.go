package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snarlhq/snarl/internal/config"
	"github.com/snarlhq/snarl/internal/dashboard"
	"github.com/snarlhq/snarl/internal/explorer"
	"github.com/snarlhq/snarl/internal/graph"
	"github.com/snarlhq/snarl/internal/graph/memory"
	"github.com/snarlhq/snarl/internal/graph/neo4j"
	"github.com/snarlhq/snarl/internal/history"
	"github.com/snarlhq/snarl/internal/observability"
	"github.com/snarlhq/snarl/internal/patterns"
	"github.com/snarlhq/snarl/internal/policy"
	"github.com/snarlhq/snarl/internal/report"
	"github.com/snarlhq/snarl/internal/vector/qdrant"
)

// Overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "snarl",
		Short: "Dependency graph pattern detection engine",
	}

	// analyze
	var (
		configPath  string
		source      string
		inputPath   string
		jsonOut     bool
		outputPath  string
		dotPath     string
		mermaidPath string
		saveRun     bool
		tag         string
		baseline    string
	)
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run pattern detection against the configured graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(analyzeOptions{
				configPath:  configPath,
				source:      source,
				inputPath:   inputPath,
				jsonOut:     jsonOut,
				outputPath:  outputPath,
				dotPath:     dotPath,
				mermaidPath: mermaidPath,
				save:        saveRun,
				tag:         tag,
				baseline:    baseline,
			})
		},
	}
	analyzeCmd.Flags().StringVar(&configPath, "config", "configs/snarl.yaml", "Config file path")
	analyzeCmd.Flags().StringVar(&source, "source", "", "Graph source: neo4j or file (default from config)")
	analyzeCmd.Flags().StringVar(&inputPath, "input", "", "Graph document path when source is file")
	analyzeCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().StringVar(&outputPath, "output", "", "Write the text report to a file")
	analyzeCmd.Flags().StringVar(&dotPath, "dot", "", "Write a Graphviz overlay to a file")
	analyzeCmd.Flags().StringVar(&mermaidPath, "mermaid", "", "Write a Mermaid overlay to a file")
	analyzeCmd.Flags().BoolVar(&saveRun, "save", false, "Save the run to history")
	analyzeCmd.Flags().StringVar(&tag, "tag", "", "Tag for the saved run (implies --save)")
	analyzeCmd.Flags().StringVar(&baseline, "baseline", "", "Run ID, tag, or 'latest' to diff against")

	// gate
	var (
		gateConfigPath string
		gateResultPath string
		gateSource     string
		gateInputPath  string
		gateBaseline   string
	)
	gateCmd := &cobra.Command{
		Use:          "gate",
		Short:        "Evaluate policy gates, exiting non-zero on failure",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(gateConfigPath, gateResultPath, gateSource, gateInputPath, gateBaseline)
		},
	}
	gateCmd.Flags().StringVar(&gateConfigPath, "config", "configs/snarl.yaml", "Config file path")
	gateCmd.Flags().StringVar(&gateResultPath, "result", "", "Result JSON file; empty runs a fresh detection")
	gateCmd.Flags().StringVar(&gateSource, "source", "", "Graph source for a fresh run")
	gateCmd.Flags().StringVar(&gateInputPath, "input", "", "Graph document path when source is file")
	gateCmd.Flags().StringVar(&gateBaseline, "baseline", "", "Run ID, tag, or 'latest' for regression gating")

	// history
	var historyConfigPath string
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved detection runs",
	}
	historyCmd.PersistentFlags().StringVar(&historyConfigPath, "config", "configs/snarl.yaml", "Config file path")

	historyListCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(historyConfigPath)
		},
	}
	historyShowCmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show one run (by ID, tag, or 'latest')",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(historyConfigPath, args[0])
		},
	}
	historyDiffCmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Diff two runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDiff(historyConfigPath, args[0], args[1])
		},
	}
	historyTagCmd := &cobra.Command{
		Use:   "tag <run> <tag>",
		Short: "Tag a run (moves the tag if another run holds it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryTag(historyConfigPath, args[0], args[1])
		},
	}
	historyDeleteCmd := &cobra.Command{
		Use:   "delete <run>",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(historyConfigPath, args[0])
		},
	}
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDiffCmd, historyTagCmd, historyDeleteCmd)

	// seed
	var (
		seedConfigPath string
		seedInputPath  string
		seedClear      bool
	)
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a graph document into the Neo4j store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(seedConfigPath, seedInputPath, seedClear)
		},
	}
	seedCmd.Flags().StringVar(&seedConfigPath, "config", "configs/snarl.yaml", "Config file path")
	seedCmd.Flags().StringVar(&seedInputPath, "input", "", "Graph document to load")
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "Clear the store before seeding")
	_ = seedCmd.MarkFlagRequired("input")

	// similar
	var (
		similarConfigPath string
		similarRun        string
		similarPattern    string
		similarLimit      int
	)
	similarCmd := &cobra.Command{
		Use:   "similar",
		Short: "Find archived findings similar to one in a saved run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(similarConfigPath, similarRun, similarPattern, similarLimit)
		},
	}
	similarCmd.Flags().StringVar(&similarConfigPath, "config", "configs/snarl.yaml", "Config file path")
	similarCmd.Flags().StringVar(&similarRun, "run", "latest", "Run ID, tag, or 'latest'")
	similarCmd.Flags().StringVar(&similarPattern, "pattern", "", "Finding ID within the run (default: first finding)")
	similarCmd.Flags().IntVar(&similarLimit, "limit", 5, "Maximum matches to return")

	// explore
	var (
		exploreConfigPath string
		exploreAddr       string
	)
	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "Serve the run history API with live events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(exploreConfigPath, exploreAddr)
		},
	}
	exploreCmd.Flags().StringVar(&exploreConfigPath, "config", "configs/snarl.yaml", "Config file path")
	exploreCmd.Flags().StringVar(&exploreAddr, "addr", "", "Listen address (default from config)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snarl %s\n", version)
		},
	}

	rootCmd.AddCommand(analyzeCmd, gateCmd, historyCmd, seedCmd, similarCmd, exploreCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type analyzeOptions struct {
	configPath  string
	source      string
	inputPath   string
	jsonOut     bool
	outputPath  string
	dotPath     string
	mermaidPath string
	save        bool
	tag         string
	baseline    string
}

func runAnalyze(opts analyzeOptions) error {
	ctx := context.Background()
	cfg := loadConfig(opts.configPath)
	resolveSecrets(ctx, cfg)

	shutdown := initObservability(ctx, cfg)
	defer shutdown()

	fmt.Println("=== Loading graph ===")
	adapter, sourceLabel, err := openAdapter(ctx, cfg, opts.source, opts.inputPath)
	if err != nil {
		return fmt.Errorf("open graph source: %w", err)
	}
	defer adapter.Close(ctx)

	pcfg := cfg.Detection.PatternsConfig()
	snap, err := graph.BuildSnapshot(ctx, adapter, pcfg.ExcludedNodeTypes, pcfg.ExcludedEdgeTypes)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}
	fmt.Printf("  %s: %d nodes, %d edges\n", sourceLabel, snap.NodeCount(), snap.EdgeCount())

	fmt.Println("\n=== Detecting patterns ===")
	start := time.Now()
	observability.Audit().LogAnalysisStart(ctx, "cli", snap.NodeCount(), snap.EdgeCount())
	result, err := patterns.DetectOnSnapshot(ctx, snap, pcfg)
	if err != nil {
		observability.Audit().LogAnalysisError(ctx, "cli", err)
		return fmt.Errorf("detection: %w", err)
	}
	observability.Audit().LogAnalysisComplete(ctx, "cli", time.Since(start), result.Summary.Total, result.Cancelled())

	for _, t := range patterns.AllPatternTypes {
		fmt.Printf("  %-20s %d\n", t, result.Summary.ByType[t])
	}
	if result.Cancelled() {
		fmt.Println("  (cancelled: partial results)")
	}

	// Resolve the baseline before saving so 'latest' means the previous run.
	var store *history.Store
	var baselineRun *history.Run
	if opts.save || opts.tag != "" || opts.baseline != "" {
		store, err = history.NewStore(cfg.History.Dir)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
	}
	if opts.baseline != "" {
		baselineRun, err = resolveRun(store, opts.baseline)
		if err != nil {
			return fmt.Errorf("baseline %q: %w", opts.baseline, err)
		}
	}

	newRun := &history.Run{ID: "current", Result: result}
	if opts.save || opts.tag != "" {
		saved, err := store.Save(result, history.SaveOptions{
			Tag:       opts.tag,
			Source:    sourceLabel,
			NodeCount: snap.NodeCount(),
			EdgeCount: snap.EdgeCount(),
		})
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		newRun = saved
		observability.Audit().LogRunPersisted(ctx, saved.ID, cfg.History.Dir)
		fmt.Printf("\n  Saved run %s%s\n", saved.ID, tagSuffix(saved.Tag))
	}

	if baselineRun != nil {
		fmt.Println("\n=== Baseline comparison ===")
		fmt.Print(history.FormatDiff(history.Diff(baselineRun, newRun)))
	}

	if opts.dotPath != "" {
		if err := os.WriteFile(opts.dotPath, []byte(report.ExportDOT(result, snap)), 0o644); err != nil {
			return fmt.Errorf("write dot: %w", err)
		}
		fmt.Printf("  Graphviz overlay written to %s\n", opts.dotPath)
	}
	if opts.mermaidPath != "" {
		if err := os.WriteFile(opts.mermaidPath, []byte(report.ExportMermaid(result, snap)), 0o644); err != nil {
			return fmt.Errorf("write mermaid: %w", err)
		}
		fmt.Printf("  Mermaid overlay written to %s\n", opts.mermaidPath)
	}
	if opts.outputPath != "" {
		if err := os.WriteFile(opts.outputPath, []byte(report.FormatText(result)), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("  Report written to %s\n", opts.outputPath)
	}

	if opts.jsonOut {
		data, err := report.ExportJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Println()
		report.PrintSummary(os.Stdout, result)
	}
	return nil
}

func runGate(configPath, resultPath, source, inputPath, baseline string) error {
	ctx := context.Background()
	cfg := loadConfig(configPath)
	resolveSecrets(ctx, cfg)

	var result *patterns.Result
	if resultPath != "" {
		data, err := os.ReadFile(resultPath)
		if err != nil {
			return fmt.Errorf("read result: %w", err)
		}
		result = &patterns.Result{}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse result: %w", err)
		}
	} else {
		fmt.Println("=== Running detection ===")
		adapter, _, err := openAdapter(ctx, cfg, source, inputPath)
		if err != nil {
			return fmt.Errorf("open graph source: %w", err)
		}
		defer adapter.Close(ctx)
		result, err = patterns.DetectPatterns(ctx, adapter, cfg.Detection.PatternsConfig())
		if err != nil {
			return fmt.Errorf("detection: %w", err)
		}
		fmt.Printf("  %d findings\n\n", result.Summary.Total)
	}

	var diff *history.RunDiff
	if baseline != "" {
		store, err := history.NewStore(cfg.History.Dir)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		baselineRun, err := resolveRun(store, baseline)
		if err != nil {
			return fmt.Errorf("baseline %q: %w", baseline, err)
		}
		diff = history.Diff(baselineRun, &history.Run{ID: "current", Result: result})
	}

	pipeline, err := policy.BuildPipeline(&cfg.Policy)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	pres := pipeline.Run(ctx, &policy.EvalContext{Result: result, Diff: diff})
	observability.Audit().LogGateEvaluation(ctx, "cli", string(pres.Status), pres.PassedCount, pres.FailedCount)

	fmt.Print(policy.FormatReport(pres))
	if pres.Failed() {
		return fmt.Errorf("gate failed: %s", pres.Summary)
	}
	return nil
}

func runHistoryList(configPath string) error {
	store, err := openHistory(configPath)
	if err != nil {
		return err
	}

	runs := store.List()
	if len(runs) == 0 {
		fmt.Println("No saved runs.")
		return nil
	}

	fmt.Printf("%-24s %-20s %-24s %9s %-9s %s\n", "ID", "CREATED", "SOURCE", "FINDINGS", "WORST", "TAG")
	for _, r := range runs {
		worst := r.Worst
		if r.Cancelled {
			worst += "*"
		}
		fmt.Printf("%-24s %-20s %-24s %9d %-9s %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.PatternCount, worst, r.Tag)
	}
	return nil
}

func runHistoryShow(configPath, ref string) error {
	store, err := openHistory(configPath)
	if err != nil {
		return err
	}
	run, err := resolveRun(store, ref)
	if err != nil {
		return err
	}

	fmt.Printf("Run:     %s%s\n", run.ID, tagSuffix(run.Tag))
	fmt.Printf("Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	if run.Source != "" {
		fmt.Printf("Source:  %s\n", run.Source)
	}
	fmt.Printf("Graph:   %d nodes, %d edges\n\n", run.NodeCount, run.EdgeCount)
	fmt.Print(report.FormatText(run.Result))
	return nil
}

func runHistoryDiff(configPath, oldRef, newRef string) error {
	store, err := openHistory(configPath)
	if err != nil {
		return err
	}
	oldRun, err := resolveRun(store, oldRef)
	if err != nil {
		return fmt.Errorf("old run: %w", err)
	}
	newRun, err := resolveRun(store, newRef)
	if err != nil {
		return fmt.Errorf("new run: %w", err)
	}

	fmt.Print(history.FormatDiff(history.Diff(oldRun, newRun)))
	return nil
}

func runHistoryTag(configPath, ref, tag string) error {
	store, err := openHistory(configPath)
	if err != nil {
		return err
	}
	run, err := resolveRun(store, ref)
	if err != nil {
		return err
	}
	if err := store.Tag(run.ID, tag); err != nil {
		return err
	}
	fmt.Printf("Tagged %s as %q\n", run.ID, tag)
	return nil
}

func runHistoryDelete(configPath, ref string) error {
	store, err := openHistory(configPath)
	if err != nil {
		return err
	}
	run, err := resolveRun(store, ref)
	if err != nil {
		return err
	}
	if err := store.Delete(run.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", run.ID)
	return nil
}

func runSeed(configPath, inputPath string, clear bool) error {
	ctx := context.Background()
	cfg := loadConfig(configPath)
	resolveSecrets(ctx, cfg)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read graph document: %w", err)
	}
	var doc graph.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse graph document: %w", err)
	}

	fmt.Println("=== Connecting to Neo4j ===")
	adapter, err := neo4j.NewAdapter(ctx, neo4j.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer adapter.Close(ctx)

	if clear {
		fmt.Println("  Clearing existing graph")
		if err := adapter.ClearGraph(ctx); err != nil {
			return fmt.Errorf("clear graph: %w", err)
		}
	}

	fmt.Println("\n=== Seeding ===")
	if err := adapter.SeedGraph(ctx, doc.Nodes, doc.Edges); err != nil {
		return fmt.Errorf("seed graph: %w", err)
	}
	fmt.Printf("  Loaded %d nodes, %d edges from %s\n", len(doc.Nodes), len(doc.Edges), inputPath)
	return nil
}

func runSimilar(configPath, runRef, patternID string, limit int) error {
	ctx := context.Background()
	cfg := loadConfig(configPath)
	resolveSecrets(ctx, cfg)

	store, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	run, err := resolveRun(store, runRef)
	if err != nil {
		return err
	}
	if run.Result == nil || len(run.Result.Patterns) == 0 {
		return fmt.Errorf("run %s has no findings", run.ID)
	}

	target := run.Result.Patterns[0]
	if patternID != "" {
		found := false
		for _, p := range run.Result.Patterns {
			if p.ID == patternID {
				target = p
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("finding %q not in run %s", patternID, run.ID)
		}
	}

	repo, err := qdrant.NewRepository(ctx, qdrant.Config{
		Host:       cfg.Vector.Host,
		Port:       cfg.Vector.Port,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.Vector.Collection,
	})
	if err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}
	defer repo.Close()

	matches, err := repo.SearchSimilar(ctx, target, limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	fmt.Printf("Findings similar to %s [%s] %s\n\n", target.ID, target.Severity, target.Description)
	if len(matches) == 0 {
		fmt.Println("No similar findings archived.")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("  %.3f  %-12s [%s] %s (run %s)\n",
			m.Score, m.Payload["type"], m.Payload["severity"], m.Payload["description"], m.Payload["run_id"])
	}
	return nil
}

func runExplore(configPath, addr string) error {
	ctx := context.Background()
	cfg := loadConfig(configPath)

	if addr == "" {
		addr = cfg.Server.ExplorerAddr
	}

	store, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	dash := dashboard.New()
	exp := explorer.New(&explorer.Config{ListenAddr: addr}, explorer.NewStore(store), dash.Mount)

	errCh := make(chan error, 1)
	go func() { errCh <- exp.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down\n", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return exp.Stop(shutdownCtx)
	}
}

// loadConfig falls back to defaults when the file is absent or unreadable.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Default()
	}
	for _, w := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return cfg
}

// resolveSecrets fills credential fields through the configured backend.
func resolveSecrets(ctx context.Context, cfg *config.Config) {
	mgr, err := cfg.Secrets.Manager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secrets manager unavailable: %v\n", err)
		return
	}
	cfg.ResolveCredentials(ctx, mgr)
}

// initObservability starts tracing and audit logging when configured and
// returns a shutdown function.
func initObservability(ctx context.Context, cfg *config.Config) func() {
	var tp *observability.TracerProvider
	if cfg.Observability.OTLPEndpoint != "" {
		tcfg := observability.DefaultTracingConfig()
		tcfg.ServiceVersion = version
		tcfg.Environment = cfg.Observability.Environment
		tcfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
		tcfg.SampleRate = cfg.Observability.SampleRatio

		var err error
		tp, err = observability.InitTracing(ctx, tcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: tracing init failed: %v\n", err)
			tp = nil
		}
	}

	if cfg.Observability.AuditPath != "" {
		acfg := observability.DefaultAuditConfig()
		acfg.OutputPath = cfg.Observability.AuditPath
		if err := observability.InitGlobalAuditLogger(acfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit init failed: %v\n", err)
		}
	}

	return func() {
		observability.Audit().Close()
		if tp != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tp.Shutdown(shutdownCtx)
		}
	}
}

// openAdapter builds the graph adapter for the selected source and returns a
// label describing it for run provenance.
func openAdapter(ctx context.Context, cfg *config.Config, source, inputPath string) (graph.Adapter, string, error) {
	if source == "" {
		source = cfg.Graph.Source
	}
	switch source {
	case "file":
		path := inputPath
		if path == "" {
			path = cfg.Graph.File
		}
		if path == "" {
			return nil, "", fmt.Errorf("file source needs --input or graph.file in config")
		}
		adapter, err := memory.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		return adapter, "file:" + path, nil
	case "neo4j":
		adapter, err := neo4j.NewAdapter(ctx, neo4j.Config{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
		})
		if err != nil {
			return nil, "", err
		}
		return adapter, "neo4j:" + cfg.Graph.URI, nil
	default:
		return nil, "", fmt.Errorf("unknown graph source %q", source)
	}
}

func openHistory(configPath string) (*history.Store, error) {
	cfg := loadConfig(configPath)
	store, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// resolveRun looks a run up by ID first, then by tag; "latest" picks the most
// recent saved run.
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

func tagSuffix(tag string) string {
	if tag == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", tag)
}
