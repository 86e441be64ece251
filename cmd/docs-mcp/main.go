// docs-mcp ingests documentation from configured sources, embeds it in
// batches, and serves hybrid lexical/vector queries over a single
// streamable HTTP endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/5dlabs/docs-mcp/pkg/config"
	"github.com/5dlabs/docs-mcp/pkg/database"
	"github.com/5dlabs/docs-mcp/pkg/embedbatch"
	"github.com/5dlabs/docs-mcp/pkg/ingest"
	"github.com/5dlabs/docs-mcp/pkg/job"
	"github.com/5dlabs/docs-mcp/pkg/queryengine"
	"github.com/5dlabs/docs-mcp/pkg/ratelimit"
	"github.com/5dlabs/docs-mcp/pkg/session"
	"github.com/5dlabs/docs-mcp/pkg/sse"
	"github.com/5dlabs/docs-mcp/pkg/transport"
	"github.com/5dlabs/docs-mcp/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var n int64
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	addr := flag.String("addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	logger := slog.Default()
	logger.Info("starting", "app", version.AppName, "commit", version.GitCommit, "config_dir", *configDir)

	ctx := context.Background()

	registry, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize tool registry: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	store := database.NewStore(dbClient)
	logger.Info("connected to postgres", "database", dbConfig.Database)

	embedModel := getEnv("EMBEDDING_MODEL", "text-embedding-3-small")
	embedClientCfg := embedbatch.ClientConfig{
		BaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		APIKey:  os.Getenv("EMBEDDING_API_KEY"),
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: int(getEnvInt64("EMBEDDING_RPM", 500)),
		TokensPerMinute:   int(getEnvInt64("EMBEDDING_TPM", 1_000_000)),
	})
	if err != nil {
		log.Fatalf("failed to build rate limiter: %v", err)
	}

	remote := embedbatch.NewClient(embedClientCfg)
	queue := embedbatch.NewQueue(embedbatch.Config{
		Model:                           embedModel,
		MaxRequestsPerBatch:             500,
		MaxWait:                         5 * time.Minute,
		SyncCostPerMillionTokensMicros:  20_000,
		BatchCostPerMillionTokensMicros: 10_000,
	}, remote, limiter)
	queryEmbedder := embedbatch.NewQueryEmbedder(embedClientCfg, embedModel)

	orchestrator := job.New(job.DefaultConfig(), store, queue)

	sessions := session.NewManager(session.Config{})
	sessions.StartSweeper(ctx, session.DefaultSweepInterval)
	defer sessions.StopSweeper()

	hub := sse.NewHub(sse.DefaultReplayBufferSize)

	engine := queryengine.New(registry, store, queryEmbedder)

	dispatcher := newDispatcher(registry, engine, orchestrator)

	transportCfg := transport.LoadConfigFromEnv()
	srv := transport.NewServer(transportCfg, sessions, hub, dispatcher.handle)

	go submitAndPollLoop(ctx, queue, store, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", *addr, "path", transportCfg.Path)
	if err := srv.Start(*addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("stopped")
}

// submitAndPollLoop periodically submits ready batches, polls in-flight
// ones, and persists completed results back onto the chunks that produced
// them, decoupling the embedding pipeline's async lifecycle from individual
// ingest requests.
func submitAndPollLoop(ctx context.Context, queue *embedbatch.Queue, store *database.Store, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := queue.Submit(ctx); err != nil {
				logger.Warn("embedbatch: submit pass failed", "error", err)
			}
			if err := queue.Poll(ctx); err != nil {
				logger.Warn("embedbatch: poll pass failed", "error", err)
			}
			persistCompletedEmbeddings(ctx, queue, store, logger)
			queue.Cleanup(24 * time.Hour)
		}
	}
}

// persistCompletedEmbeddings drains every completed batch's results exactly
// once and attaches each embedding to the chunk whose ID was used as the
// request's CustomID, so document_chunks.embedding is populated without
// waiting on the job that originally submitted the request.
func persistCompletedEmbeddings(ctx context.Context, queue *embedbatch.Queue, store *database.Store, logger *slog.Logger) {
	for _, completed := range queue.DrainCompleted() {
		for _, res := range completed.Results {
			if res.Err != "" {
				logger.Warn("embedbatch: chunk embedding failed", "batch_id", completed.BatchID, "custom_id", res.CustomID, "error", res.Err)
				continue
			}
			chunkID, err := uuid.Parse(res.CustomID)
			if err != nil {
				logger.Warn("embedbatch: result custom_id is not a chunk id", "batch_id", completed.BatchID, "custom_id", res.CustomID)
				continue
			}
			if err := store.SetChunkEmbedding(ctx, chunkID, res.Vector); err != nil {
				logger.Warn("embedbatch: persist chunk embedding failed", "chunk_id", chunkID, "error", err)
			}
		}
	}
}

// dispatcher routes JSON-RPC method names to the query engine and job
// orchestrator, satisfying transport.RPCHandler.
type dispatcher struct {
	registry     *config.Registry
	engine       *queryengine.Engine
	orchestrator *job.Orchestrator
}

func newDispatcher(registry *config.Registry, engine *queryengine.Engine, orchestrator *job.Orchestrator) *dispatcher {
	return &dispatcher{registry: registry, engine: engine, orchestrator: orchestrator}
}

func (d *dispatcher) handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "tools/list":
		return d.registry.GetAll(), nil
	case "query":
		return d.handleQuery(ctx, params)
	case "ingest/start":
		return d.handleIngestStart(ctx, params)
	case "ingest/status":
		return d.handleIngestStatus(ctx, params)
	case "ingest/cancel":
		return d.handleIngestCancel(params)
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

type queryParams struct {
	DocType string `json:"doc_type"`
	queryengine.Request
}

func (d *dispatcher) handleQuery(ctx context.Context, params json.RawMessage) (any, error) {
	var p queryParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid query params: %w", err)
	}
	return d.engine.Dispatch(ctx, p.DocType, p.Request)
}

type ingestStartParams struct {
	Kind       string `json:"kind"`
	SourceName string `json:"source_name"`
	Target     string `json:"target"`
	Operation  string `json:"operation"`
	DryRun     bool   `json:"dry_run"`
	Validate   bool   `json:"validate"`
}

func (d *dispatcher) handleIngestStart(ctx context.Context, params json.RawMessage) (any, error) {
	var p ingestStartParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid ingest params: %w", err)
	}
	if p.Target == "" {
		return nil, fmt.Errorf("target is required")
	}

	jobID, err := d.orchestrator.Start(ctx, ingest.Filesystem{}, job.RunOptions{
		Kind:       job.Kind(p.Kind),
		SourceName: p.SourceName,
		Target:     p.Target,
		Operation:  p.Operation,
		DryRun:     p.DryRun,
		Validate:   p.Validate,
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"job_id": jobID.String()}, nil
}

type jobIDParams struct {
	JobID string `json:"job_id"`
}

func (d *dispatcher) handleIngestStatus(ctx context.Context, params json.RawMessage) (any, error) {
	var p jobIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	id, err := uuid.Parse(p.JobID)
	if err != nil {
		return nil, fmt.Errorf("malformed job_id: %w", err)
	}
	record, err := d.orchestrator.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if progress, ok := d.orchestrator.Progress(id); ok {
		return map[string]any{"record": record, "progress": progress}, nil
	}
	return map[string]any{"record": record}, nil
}

func (d *dispatcher) handleIngestCancel(params json.RawMessage) (any, error) {
	var p jobIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	id, err := uuid.Parse(p.JobID)
	if err != nil {
		return nil, fmt.Errorf("malformed job_id: %w", err)
	}
	if err := d.orchestrator.Cancel(id); err != nil {
		return nil, err
	}
	return map[string]string{"status": "cancelling"}, nil
}
