// Command explorer drives autonomous exploration sessions against one or
// more starting URLs, recording the discovered state graph.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/store"
	"github.com/webexplorer/agent/internal/browser"
	"github.com/webexplorer/agent/internal/config"
	"github.com/webexplorer/agent/internal/explore"
	"github.com/webexplorer/agent/internal/explore/stage"
	"github.com/webexplorer/agent/internal/graphstore"
	"github.com/webexplorer/agent/internal/llm"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("explorer: %v", err)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emitter, closeLog, err := buildEmitter(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	graphStore, err := buildGraphStore(cfg)
	if err != nil {
		return err
	}
	defer graphStore.Close()

	client, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := explore.NewMetrics(registry)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("explorer: metrics server: %v", err)
			}
		}()
	}

	// One independent session per start URL; the graph store is the only
	// shared resource, safe because every write is keyed by session.
	g, gctx := errgroup.WithContext(ctx)
	for _, startURL := range cfg.StartURLs {
		g.Go(func() error {
			return runSession(gctx, cfg, startURL, client, graphStore, metrics, emitter)
		})
	}
	return g.Wait()
}

func runSession(ctx context.Context, cfg config.Config, startURL string, client llm.Client, graphStore graphstore.GraphStore, metrics *explore.Metrics, emitter emit.Emitter) error {
	sessionID := uuid.NewString()

	drv, err := browser.NewChromeDriver(cfg.Headless)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	defer drv.Close()

	var creds *explore.Credentials
	if cfg.HasCredentials() {
		creds = &explore.Credentials{Username: cfg.Username, Password: cfg.Password}
	}

	tracker := graph.NewCostTracker(sessionID, "USD")
	sc := explore.NewStageContext(creds, cfg.IgnoreSelectors, tracker)

	deps := stage.NewDeps(stage.Deps{
		Browser:   drv,
		Model:     client,
		ModelName: cfg.LLMModel,
		Store:     graphStore,
		Context:   sc,
		Metrics:   metrics,
		SessionID: sessionID,
	})

	journal, err := buildJournal(cfg)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	session, err := stage.NewSession(deps, journal, emitter, sessionID, cfg.RecursionLimit)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	final, err := session.Run(ctx, startURL)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	fmt.Println(session.Summary(final).String())
	return nil
}

func buildEmitter(cfg config.Config) (emit.Emitter, func(), error) {
	// Tracing routes the engine's events into OpenTelemetry spans instead
	// of the text/JSON log stream.
	if cfg.Tracing {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		var tracer trace.Tracer = tp.Tracer("webexplorer")
		shutdown := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}
		return emit.NewOTelEmitter(tracer), shutdown, nil
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeLog = func() { _ = f.Close() }
	}
	return emit.NewLogEmitter(w, cfg.LogFormat == "json"), closeLog, nil
}

func buildGraphStore(cfg config.Config) (graphstore.GraphStore, error) {
	if cfg.MySQLGraph() {
		return graphstore.NewMySQLGraphStore(cfg.MySQLDSN())
	}
	return graphstore.NewSQLiteGraphStore(cfg.GraphURI)
}

func buildJournal(cfg config.Config) (store.Store[explore.RunState], error) {
	if cfg.JournalPath == "" {
		return store.NewMemStore[explore.RunState](), nil
	}
	return store.NewSQLiteStore[explore.RunState](cfg.JournalPath)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMModel), nil
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.LLMAPIKey, cfg.LLMModel), nil
	case config.ProviderGemini:
		return llm.NewGoogleClient(cfg.LLMAPIKey, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
