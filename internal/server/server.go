// Package server wires the pipeline, registry, and ingest service to the
// HTTP surface: streaming and buffered chat, agent introspection,
// ingestion, and health checks.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andrew/llm-rag-poc/pkg/agent"
	"github.com/andrew/llm-rag-poc/pkg/ingest"
	"github.com/andrew/llm-rag-poc/pkg/llm"
	"github.com/andrew/llm-rag-poc/pkg/pipeline"
	"github.com/andrew/llm-rag-poc/pkg/router"
	"github.com/andrew/llm-rag-poc/pkg/vector"
	"go.uber.org/zap"
)

// Server holds the dependencies behind every HTTP handler.
type Server struct {
	Pipeline       *pipeline.Pipeline
	Registry       *agent.Registry
	Router         *router.Router
	Ingest         *ingest.Service
	VectorStore    vector.Store
	LLM            llm.Client
	Log            *zap.Logger
	AllowedOrigins []string
}

// Routes builds the HTTP mux for the service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents/preview", s.handlePreviewRoute)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return s.withCORS(mux)
}

// withCORS wraps handler with a permissive CORS policy scoped to the
// configured allowed origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Principal")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// principal pulls the pre-validated opaque principal header through to
// logging only; no authentication or authorization is implemented.
func principal(r *http.Request) string {
	return r.Header.Get("X-Principal")
}

func (s *Server) healthCheckTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitOrigins exposes splitOrigins for callers building a Server from
// config.
func SplitOrigins(raw string) []string { return splitOrigins(raw) }
