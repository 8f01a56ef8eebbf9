package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/bot"
	"github.com/yqzn9/lipidbot/internal/citation"
	"github.com/yqzn9/lipidbot/internal/cypher"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AskService answers a question through the full pipeline. Satisfied by
// *bot.Service.
type AskService interface {
	Ask(ctx context.Context, question string, opts citation.SearchOptions) (*bot.Answer, error)
}

// CypherService runs the generate-and-execute graph query pipeline.
// Satisfied by *cypher.Service.
type CypherService interface {
	QueryWithTier(ctx context.Context, question string, tier schemas.ModelTier) (*cypher.Result, error)
}

// CitationService is the literature retrieval entry point. Satisfied by
// *citation.Service.
type CitationService interface {
	Search(ctx context.Context, query string, opts citation.SearchOptions) ([]schemas.Hit, error)
}

// Pinger reports backend connectivity for the health endpoint. Satisfied
// by *graph.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers manages the HTTP request handling for the API server.
type Handlers struct {
	log       *zap.Logger
	botSvc    AskService
	cypherSvc CypherService
	citations CitationService
	graphPing Pinger
}

// NewHandlers creates the handler set. graphPing may be nil, in which case
// the health endpoint skips the connectivity report.
func NewHandlers(logger *zap.Logger, botSvc AskService, cypherSvc CypherService, citations CitationService, graphPing Pinger) *Handlers {
	return &Handlers{
		log:       logger.Named("http_handlers"),
		botSvc:    botSvc,
		cypherSvc: cypherSvc,
		citations: citations,
		graphPing: graphPing,
	}
}

// RegisterRoutes sets up the routing for the API server.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	// Health check endpoint (unversioned)
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/citation/search", h.HandleCitationSearch)
		r.Post("/cypher/query", h.HandleCypherQuery)
		r.Post("/ask", h.HandleAsk)
	})
}

// HandleHealthCheck confirms the server is responsive and reports graph
// connectivity. The endpoint is always 200: a down graph degrades the
// service, it does not kill it.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"ok": true}
	if h.graphPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.graphPing.Ping(ctx); err != nil {
			h.log.Warn("Health check: graph unreachable", zap.Error(err))
			body["neo4j"] = "down"
		} else {
			body["neo4j"] = "up"
		}
	}
	h.respondJSON(w, http.StatusOK, body)
}

// HandleCitationSearch runs literature retrieval on its own, without the
// rest of the answer pipeline.
func (h *Handlers) HandleCitationSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}

	hits, err := h.citations.Search(r.Context(), req.Query, req.searchOptions())
	if err != nil {
		h.log.Error("Citation search failed", zap.Error(err), zap.String("query", req.Query))
		h.respondRetrievalError(w, err, "Search failed")
		return
	}
	if hits == nil {
		hits = []schemas.Hit{}
	}
	h.respondWithSuccess(w, http.StatusOK, map[string][]schemas.Hit{"hits": hits})
}

// HandleCypherQuery generates a Cypher statement for the question and
// executes it against the knowledge graph.
func (h *Handlers) HandleCypherQuery(w http.ResponseWriter, r *http.Request) {
	var req CypherQueryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}
	tier := schemas.ModelTier(req.Tier)
	switch tier {
	case "", schemas.TierFast, schemas.TierPowerful:
	default:
		h.respondWithError(w, http.StatusBadRequest, "tier must be \"fast\" or \"powerful\"")
		return
	}

	result, err := h.cypherSvc.QueryWithTier(r.Context(), req.Query, tier)
	if err != nil {
		h.log.Error("Cypher query failed", zap.Error(err), zap.String("query", req.Query))
		h.respondRetrievalError(w, err, "Cypher query failed")
		return
	}

	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	h.respondWithSuccess(w, http.StatusOK, CypherQueryResponse{
		Success:     true,
		Data:        rows,
		CypherQuery: result.Cypher,
		Query:       req.Query,
	})
}

// HandleAsk runs the full answer pipeline.
func (h *Handlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := h.botSvc.Ask(r.Context(), req.Query, req.searchOptions())
	if err != nil {
		h.log.Error("Ask pipeline failed", zap.Error(err), zap.String("query", req.Query))
		h.respondRetrievalError(w, err, "Request failed")
		return
	}
	h.respondWithSuccess(w, http.StatusOK, answer)
}

func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// respondRetrievalError maps pipeline failures onto status codes: blown
// deadlines become 504, everything else 500.
func (h *Handlers) respondRetrievalError(w http.ResponseWriter, err error, prefix string) {
	if errors.Is(err, context.DeadlineExceeded) {
		h.respondWithError(w, http.StatusGatewayTimeout, prefix+": request timeout")
		return
	}
	h.respondWithError(w, http.StatusInternalServerError, prefix+": "+err.Error())
}

func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, APIResponse{Status: "error", Error: message})
}

func (h *Handlers) respondWithSuccess(w http.ResponseWriter, statusCode int, data any) {
	h.respondJSON(w, statusCode, APIResponse{Status: "success", Data: data})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
