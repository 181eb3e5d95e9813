// Command chatbot-api runs the HTTP front end for the course-material
// chatbot: routing, retrieval, multi-agent coordination, and session
// history behind a single streaming and non-streaming chat API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrew/llm-rag-poc/internal/config"
	"github.com/andrew/llm-rag-poc/internal/logging"
	"github.com/andrew/llm-rag-poc/internal/server"
	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/embedding"
	"github.com/andrew/llm-rag-poc/pkg/ingest"
	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/pipeline"
	"github.com/andrew/llm-rag-poc/pkg/retrieval"
	"github.com/andrew/llm-rag-poc/pkg/router"
	"github.com/andrew/llm-rag-poc/pkg/session"
	"github.com/andrew/llm-rag-poc/pkg/vector"
	"go.uber.org/zap"
)

var development = flag.Bool("dev", false, "enable verbose development logging")

func main() {
	flag.Parse()

	cfg := config.Load()

	logger, err := logging.New(cfg.LogFilePath, *development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutdown signal received")
		cancel()
	}()

	store, err := vector.NewQdrantStore(ctx, cfg.Qdrant.URL, cfg.Qdrant.Collection, cfg.Qdrant.Dimension)
	if err != nil {
		logger.Fatal("failed to connect to qdrant", zap.Error(err))
	}
	defer store.Close()

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel, cfg.Qdrant.Dimension)
	if err != nil {
		logger.Fatal("failed to initialize embedder", zap.Error(err))
	}
	llmClient := llm.NewOllamaClient(cfg.Ollama.ChatModel, cfg.Ollama.BaseURL)
	defer llmClient.Close()

	retrievalSvc := retrieval.NewService(store, embedder, retrieval.Config{
		DefaultLimit: cfg.Retrieval.DefaultLimit,
		MaxLimit:     cfg.Retrieval.MaxLimit,
		ScoreFloor:   cfg.Retrieval.ScoreFloor,
	})

	registry := agent.NewRegistry(cfg.Agent.Default,
		agent.NewGlossaryAgent(retrievalSvc, llmClient),
		agent.NewHardwareAgent(retrievalSvc, llmClient),
		agent.NewModuleInfoAgent(retrievalSvc, llmClient),
		agent.NewCapstoneAgent(retrievalSvc, llmClient),
		agent.NewBookAgent(retrievalSvc, llmClient),
	)

	var sessionStore session.Store
	if cfg.Session.Backend == "redis" {
		redisStore, err := session.NewRedisStore(cfg.Session.RedisURL, cfg.History.Window)
		if err != nil {
			logger.Fatal("failed to connect to redis session store", zap.Error(err))
		}
		defer redisStore.Close()
		sessionStore = redisStore
	} else {
		sessionStore = session.NewMemoryStore(cfg.History.Window)
	}

	softTimeout := time.Duration(cfg.Agent.SoftTimeoutSeconds) * time.Second
	hardTimeout := time.Duration(cfg.Agent.HardTimeoutSeconds) * time.Second
	pipe := pipeline.New(registry, sessionStore, cfg.History.Window, softTimeout, hardTimeout, logger)

	srv := &server.Server{
		Pipeline:       pipe,
		Registry:       registry,
		Router:         router.NewRouter(registry),
		Ingest:         ingest.NewService(store, embedder),
		VectorStore:    store,
		LLM:            llmClient,
		Log:            logger,
		AllowedOrigins: server.SplitOrigins(cfg.HTTP.CorsAllowedOrigins),
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: srv.Routes(),
	}

	go func() {
		logger.Info("chatbot-api listening", zap.String("port", cfg.HTTP.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
