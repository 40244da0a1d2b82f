package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/snarlhq/snarl/internal/config"
	"github.com/snarlhq/snarl/internal/dashboard"
	"github.com/snarlhq/snarl/internal/explorer"
	neo4jgraph "github.com/snarlhq/snarl/internal/graph/neo4j"
	"github.com/snarlhq/snarl/internal/history"
	"github.com/snarlhq/snarl/internal/observability"
	"github.com/snarlhq/snarl/internal/server"
	temporalmod "github.com/snarlhq/snarl/internal/temporal"
	"github.com/snarlhq/snarl/internal/vector"
	"github.com/snarlhq/snarl/internal/vector/qdrant"

	temporalclient "go.temporal.io/sdk/client"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	configPath := "configs/snarl.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	ctx := context.Background()
	if mgr, err := cfg.Secrets.Manager(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secrets manager unavailable: %v\n", err)
	} else {
		cfg.ResolveCredentials(ctx, mgr)
	}

	var tp *observability.TracerProvider
	if cfg.Observability.OTLPEndpoint != "" {
		tcfg := observability.DefaultTracingConfig()
		tcfg.ServiceName = "snarl-worker"
		tcfg.ServiceVersion = version
		tcfg.Environment = cfg.Observability.Environment
		tcfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
		tcfg.SampleRate = cfg.Observability.SampleRatio

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

	store, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		log.Fatalf("history store: %v", err)
	}

	// The signature archive is optional: a worker without one still detects,
	// gates and persists.
	var vectors vector.Repository
	if cfg.Vector.Host != "" {
		repo, err := qdrant.NewRepository(ctx, qdrant.Config{
			Host:       cfg.Vector.Host,
			Port:       cfg.Vector.Port,
			APIKey:     cfg.Vector.APIKey,
			Collection: cfg.Vector.Collection,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: signature archive unavailable: %v\n", err)
		} else {
			vectors = repo
		}
	}

	dash := dashboard.New()

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Config:  cfg,
		History: store,
		Vectors: vectors,
		Events:  dash.Emitter,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	exp := explorer.New(&explorer.Config{ListenAddr: cfg.Server.ExplorerAddr}, explorer.NewStore(store), dash.Mount)
	go func() {
		if err := exp.Start(); err != nil {
			log.Printf("explorer: %v", err)
		}
	}()

	gs := server.NewGracefulServer(&server.HealthConfig{Version: version}, nil)

	gs.Health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))
	if cfg.Graph.Source == "neo4j" {
		gs.Health.RegisterCheck("graph", server.GraphStoreHealthChecker(func(ctx context.Context) error {
			adapter, err := neo4jgraph.NewAdapter(ctx, neo4jgraph.Config{
				URI:      cfg.Graph.URI,
				Username: cfg.Graph.Username,
				Password: cfg.Graph.Password,
				Database: cfg.Graph.Database,
			})
			if err != nil {
				return err
			}
			return adapter.Close(ctx)
		}))
	}
	var vectorCheck func(ctx context.Context) error
	if vectors != nil {
		vectorCheck = vectors.EnsureCollection
	}
	gs.Health.RegisterCheck("vector", server.VectorHealthChecker(vectorCheck))
	gs.Health.RegisterCheck("history", server.HistoryHealthChecker(cfg.History.Dir))

	gs.Shutdown.Register(server.HTTPServerShutdownHook("explorer", exp.Stop))
	gs.Shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))
	gs.Shutdown.RegisterHook("temporal-client", 30, func(ctx context.Context) error {
		c.Close()
		return nil
	})
	if vectors != nil {
		gs.Shutdown.Register(server.VectorStoreShutdownHook(vectors.Close))
	}
	if tp != nil {
		gs.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))
	}
	gs.Shutdown.Register(server.AuditLoggerShutdownHook(observability.Audit().Close))

	if err := gs.Start(cfg.Server.HealthAddr); err != nil {
		log.Fatalf("health server: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)
	fmt.Printf("  health:   %s\n", cfg.Server.HealthAddr)
	fmt.Printf("  explorer: %s\n", cfg.Server.ExplorerAddr)

	gs.Wait()
	fmt.Println("Worker stopped")
}
