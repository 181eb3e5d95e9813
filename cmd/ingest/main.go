// Command ingest chunks course material files or directories, embeds
// each chunk, and upserts them into Qdrant under a domain tag. It
// consolidates the teacher pack's file-walking indexer and its
// collection-setup indexer into one flow that exercises the real
// embedding and vector-store pipeline instead of leaving a TODO where
// they stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrew/llm-rag-poc/pkg/embedding"
	"github.com/andrew/llm-rag-poc/pkg/ingest"
	"github.com/andrew/llm-rag-poc/pkg/vector"
)

func main() {
	qdrantURL := flag.String("qdrant-url", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
	collection := flag.String("collection", envOr("QDRANT_COLLECTION", "course_material"), "Qdrant collection name")
	dimension := flag.Int("dimension", 4096, "embedding vector dimension")
	ollamaURL := flag.String("ollama-url", envOr("OLLAMA_BASE_URL", "http://localhost:11434"), "Ollama base URL")
	embedModel := flag.String("embed-model", envOr("OLLAMA_EMBED_MODEL", "llama3"), "Ollama embedding model")

	contentDir := flag.String("content-dir", "", "directory of files to ingest (walked recursively)")
	filePath := flag.String("file", "", "single file to ingest")
	domain := flag.String("domain", "general", "domain tag: glossary, hardware, module_info, capstone, or general")
	chunkSize := flag.Int("chunk-size", ingest.DefaultChunkSize, "chunk size in characters")
	chunkOverlap := flag.Int("chunk-overlap", ingest.DefaultChunkOverlap, "chunk overlap in characters")
	flag.Parse()

	if *contentDir == "" && *filePath == "" {
		log.Fatal("one of -content-dir or -file is required")
	}

	ctx := context.Background()

	store, err := vector.NewQdrantStore(ctx, *qdrantURL, *collection, *dimension)
	if err != nil {
		log.Fatalf("failed to connect to qdrant: %v", err)
	}
	defer store.Close()

	embedder, err := embedding.NewOllamaEmbedder(*ollamaURL, *embedModel, *dimension)
	if err != nil {
		log.Fatalf("failed to initialize embedder: %v", err)
	}

	svc := ingest.NewService(store, embedder)

	var files []string
	if *filePath != "" {
		files = []string{*filePath}
	} else {
		err := filepath.Walk(*contentDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			log.Fatalf("failed to walk content dir: %v", err)
		}
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}

		base := filepath.Base(path)
		title := strings.TrimSuffix(base, filepath.Ext(base))

		result, err := svc.Ingest(ctx, ingest.Request{
			Text:         text,
			Title:        title,
			Source:       base,
			Domain:       *domain,
			ChunkSize:    *chunkSize,
			ChunkOverlap: *chunkOverlap,
		})
		if err != nil {
			log.Printf("failed to ingest %s: %v", path, err)
			continue
		}

		fmt.Printf("ingested %s -> document %s (%d chunks)\n", path, result.DocumentID, len(result.ChunkIDs))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
