// Command chat is an interactive REPL over the full pipeline: routing,
// retrieval, multi-agent coordination, and citations, instead of a bare
// Ollama chat loop.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andrew/llm-rag-poc/internal/config"
	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/embedding"
	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/pipeline"
	"github.com/andrew/llm-rag-poc/pkg/retrieval"
	"github.com/andrew/llm-rag-poc/pkg/session"
	"github.com/andrew/llm-rag-poc/pkg/vector"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	flag.Parse()

	cfg := config.Load()
	logger := zap.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		cancel()
		os.Exit(0)
	}()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Println(boldGreen("Course Material Chat"))
	fmt.Printf("Routing across %d agents, model %s\n", 5, boldCyan(cfg.Ollama.ChatModel))
	fmt.Println("Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	store, err := vector.NewQdrantStore(ctx, cfg.Qdrant.URL, cfg.Qdrant.Collection, cfg.Qdrant.Dimension)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to qdrant: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel, cfg.Qdrant.Dimension)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize embedder: %v\n", err)
		os.Exit(1)
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

	sessionStore := session.NewMemoryStore(cfg.History.Window)
	sessionID := uuid.New().String()

	softTimeout := time.Duration(cfg.Agent.SoftTimeoutSeconds) * time.Second
	hardTimeout := time.Duration(cfg.Agent.HardTimeoutSeconds) * time.Second
	pipe := pipeline.New(registry, sessionStore, cfg.History.Window, softTimeout, hardTimeout, logger)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		userInput := strings.TrimSpace(scanner.Text())

		if strings.ToLower(userInput) == "exit" {
			break
		}
		if userInput == "" {
			continue
		}

		fmt.Print(boldCyan("Assistant: "))
		err := pipe.Answer(ctx, sessionID, userInput, "", func(ev pipeline.Event) error {
			switch ev.Kind {
			case pipeline.EventText:
				fmt.Print(ev.Text)
			case pipeline.EventSource:
				fmt.Print(dim(fmt.Sprintf(" [%d:%s]", ev.Source.Number, ev.Source.Source)))
			case pipeline.EventError:
				fmt.Fprintf(os.Stderr, "\n%s\n", ev.ErrorMessage)
			}
			return nil
		})
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Println("Make sure Ollama and Qdrant are running.")
		}
		fmt.Println()
	}
}

