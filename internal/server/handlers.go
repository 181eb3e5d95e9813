package server

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/andrew/llm-rag-poc/internal/sse"
	"github.com/andrew/llm-rag-poc/pkg/ingest"
	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/andrew/llm-rag-poc/pkg/pipeline"
	"go.uber.org/zap"
)

type chatRequest struct {
	SessionID    string `json:"session_id"`
	Query        string `json:"query"`
	SelectedText string `json:"selected_text,omitempty"`
}

type chatResponse struct {
	Response          string            `json:"response"`
	Sources           []models.Citation `json:"sources"`
	AgentUsed         string            `json:"agent_used"`
	RoutingConfidence float64           `json:"routing_confidence"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// handleChatStream streams a single chat turn as SSE text/source/end/error
// events.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	log := s.Log.With(zap.String("principal", principal(r)))

	err = s.Pipeline.Answer(r.Context(), req.SessionID, req.Query, req.SelectedText, func(ev pipeline.Event) error {
		switch ev.Kind {
		case pipeline.EventText:
			return writer.WriteEvent(r.Context(), "text", sse.Payload{
				Type: "text", Content: ev.Text, SessionID: ev.SessionID, AgentUsed: ev.AgentUsed,
			})
		case pipeline.EventSource:
			content, _ := json.Marshal(ev.Source)
			return writer.WriteEvent(r.Context(), "source", sse.Payload{
				Type: "source", Content: string(content), SessionID: ev.SessionID, AgentUsed: ev.AgentUsed,
			})
		case pipeline.EventEnd:
			return writer.WriteEvent(r.Context(), "end", sse.Payload{
				Type: "end", SessionID: ev.SessionID, AgentUsed: ev.AgentUsed,
			})
		case pipeline.EventError:
			return writer.WriteEvent(r.Context(), "error", sse.Payload{
				Type: "error", Content: ev.ErrorMessage, SessionID: ev.SessionID, AgentUsed: ev.AgentUsed,
			})
		default:
			return nil
		}
	})
	if err != nil {
		log.Warn("chat stream ended with error", zap.Error(err))
	}
}

// handleChat buffers the streamed pipeline output server-side and returns
// one JSON body, mirroring handleChatStream's non-streaming counterpart.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var resp chatResponse
	var sawError string

	err := s.Pipeline.Answer(r.Context(), req.SessionID, req.Query, req.SelectedText, func(ev pipeline.Event) error {
		switch ev.Kind {
		case pipeline.EventText:
			resp.Response += ev.Text
			resp.AgentUsed = ev.AgentUsed
		case pipeline.EventSource:
			resp.Sources = append(resp.Sources, ev.Source)
			resp.AgentUsed = ev.AgentUsed
		case pipeline.EventEnd:
			resp.AgentUsed = ev.AgentUsed
		case pipeline.EventError:
			sawError = ev.ErrorMessage
		}
		return nil
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sawError != "" {
		writeJSONError(w, http.StatusBadGateway, sawError)
		return
	}

	route := s.Router.Route(req.Query)
	resp.RoutingConfidence = route.Confidence

	writeJSON(w, http.StatusOK, resp)
}

// handleListAgents lists every registered agent.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Registry.List())
}

type previewRequest struct {
	Query string `json:"query"`
}

// handlePreviewRoute runs routing only, with no retrieval or generation.
func (s *Server) handlePreviewRoute(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeJSONError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	writeJSON(w, http.StatusOK, s.Router.Route(req.Query))
}

type ingestRequest struct {
	Text     string            `json:"text,omitempty"`
	FilePath string            `json:"file_path,omitempty"`
	Title    string            `json:"title,omitempty"`
	Domain   string            `json:"domain"`
	Source   string            `json:"source"`
	Section  string            `json:"section,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ingestResponse struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// handleIngest chunks, embeds, and upserts a document.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := req.Text
	if text == "" && req.FilePath != "" {
		raw, err := os.ReadFile(req.FilePath)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "could not read file_path: "+err.Error())
			return
		}
		text = string(raw)
	}
	if text == "" {
		writeJSONError(w, http.StatusBadRequest, "text or file_path is required")
		return
	}

	result, err := s.Ingest.Ingest(r.Context(), ingest.Request{
		Text:     text,
		Title:    req.Title,
		Source:   req.Source,
		Domain:   req.Domain,
		Section:  req.Section,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{DocumentID: result.DocumentID, ChunkIDs: result.ChunkIDs})
}

type healthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// handleHealth pings Qdrant and the LLM provider and reports per-dependency
// status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.healthCheckTimeout()
	defer cancel()

	components := map[string]string{}
	healthy := true

	if err := pingVectorStore(ctx, s.VectorStore); err != nil {
		components["qdrant"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		components["qdrant"] = "ok"
	}

	if err := pingLLM(ctx, s.LLM); err != nil {
		components["llm"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		components["llm"] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthStatus{Status: status, Components: components})
}
