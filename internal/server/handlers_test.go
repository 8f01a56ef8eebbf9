package server

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/bot"
	"github.com/yqzn9/lipidbot/internal/citation"
	"github.com/yqzn9/lipidbot/internal/cypher"
)

type mockAskService struct {
	mock.Mock
}

func (m *mockAskService) Ask(ctx context.Context, question string, opts citation.SearchOptions) (*bot.Answer, error) {
	args := m.Called(ctx, question, opts)
	if a := args.Get(0); a != nil {
		return a.(*bot.Answer), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCypherService struct {
	mock.Mock
}

func (m *mockCypherService) QueryWithTier(ctx context.Context, question string, tier schemas.ModelTier) (*cypher.Result, error) {
	args := m.Called(ctx, question, tier)
	if r := args.Get(0); r != nil {
		return r.(*cypher.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCitationService struct {
	mock.Mock
}

func (m *mockCitationService) Search(ctx context.Context, query string, opts citation.SearchOptions) ([]schemas.Hit, error) {
	args := m.Called(ctx, query, opts)
	if h := args.Get(0); h != nil {
		return h.([]schemas.Hit), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

type handlerFixture struct {
	router    chi.Router
	botSvc    *mockAskService
	cypherSvc *mockCypherService
	citations *mockCitationService
}

func newHandlerFixture(t *testing.T, pinger Pinger) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		botSvc:    new(mockAskService),
		cypherSvc: new(mockCypherService),
		citations: new(mockCitationService),
	}
	h := NewHandlers(zaptest.NewLogger(t), f.botSvc, f.cypherSvc, f.citations, pinger)
	f.router = chi.NewRouter()
	h.RegisterRoutes(f.router)
	return f
}

func (f *handlerFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope unwraps the standard response envelope and re-decodes the
// data payload into dst.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dst any) APIResponse {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   stdjson.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	require.NoError(t, stdjson.Unmarshal(rec.Body.Bytes(), &env))
	if dst != nil && len(env.Data) > 0 {
		require.NoError(t, stdjson.Unmarshal(env.Data, dst))
	}
	return APIResponse{Status: env.Status, Error: env.Error}
}

func TestHandleHealthCheck(t *testing.T) {
	t.Run("no pinger", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
	})

	t.Run("graph up", func(t *testing.T) {
		f := newHandlerFixture(t, &mockPinger{})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok": true, "neo4j": "up"}`, rec.Body.String())
	})

	t.Run("graph down is still 200", func(t *testing.T) {
		f := newHandlerFixture(t, &mockPinger{err: errors.New("refused")})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok": true, "neo4j": "down"}`, rec.Body.String())
	})
}

func TestHandleCitationSearch(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.citations.On("Search", mock.Anything, "omega-3 sources",
		citation.SearchOptions{TopK: 3, Method: citation.FuseVote, Per: citation.KeyCitation, RRFK: 10}).
		Return([]schemas.Hit{{Score: 1.5, CitationID: "W1", ChunkID: 0, Text: "EPA and DHA", Title: "Omega-3"}}, nil)

	rec := f.post(t, "/api/v1/citation/search",
		`{"query": "omega-3 sources", "top_k": 3, "fuse": "vote", "per": "citation_id", "rrf_k": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Hits []schemas.Hit `json:"hits"`
	}
	env := decodeEnvelope(t, rec, &body)
	assert.Equal(t, "success", env.Status)
	require.Len(t, body.Hits, 1)
	assert.Equal(t, "W1", body.Hits[0].CitationID)
	f.citations.AssertExpectations(t)
}

func TestHandleCitationSearch_EmptyHitsIsArray(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.citations.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	rec := f.post(t, "/api/v1/citation/search", `{"query": "anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "success", "data": {"hits": []}}`, rec.Body.String())
}

func TestHandleCitationSearch_BadRequests(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rec := f.post(t, "/api/v1/citation/search", `{"query": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.post(t, "/api/v1/citation/search", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec, nil)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Error, "Invalid request body")
}

func TestHandleCypherQuery(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.cypherSvc.On("QueryWithTier", mock.Anything, "What enzyme does FADS2 encode?", schemas.ModelTier("")).
		Return(&cypher.Result{
			Rows:   []map[string]any{{"ec_id": "EC:1.14.19.3"}},
			Cypher: "MATCH (g:Gene {id: 'hsa:9415'}) RETURN g",
		}, nil)

	rec := f.post(t, "/api/v1/cypher/query", `{"query": "What enzyme does FADS2 encode?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body CypherQueryResponse
	env := decodeEnvelope(t, rec, &body)
	assert.Equal(t, "success", env.Status)
	assert.True(t, body.Success)
	assert.Equal(t, "What enzyme does FADS2 encode?", body.Query)
	assert.Equal(t, "MATCH (g:Gene {id: 'hsa:9415'}) RETURN g", body.CypherQuery)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "EC:1.14.19.3", body.Data[0]["ec_id"])
}

func TestHandleCypherQuery_TierForwarded(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.cypherSvc.On("QueryWithTier", mock.Anything, "q", schemas.TierPowerful).
		Return(&cypher.Result{Rows: []map[string]any{}}, nil)

	rec := f.post(t, "/api/v1/cypher/query", `{"query": "q", "tier": "powerful"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	f.cypherSvc.AssertExpectations(t)
}

func TestHandleCypherQuery_InvalidTier(t *testing.T) {
	f := newHandlerFixture(t, nil)
	rec := f.post(t, "/api/v1/cypher/query", `{"query": "q", "tier": "enormous"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.cypherSvc.AssertNotCalled(t, "QueryWithTier", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCypherQuery_Timeout(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.cypherSvc.On("QueryWithTier", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded)

	rec := f.post(t, "/api/v1/cypher/query", `{"query": "slow question"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	env := decodeEnvelope(t, rec, nil)
	assert.Contains(t, env.Error, "request timeout")
}

func TestHandleCypherQuery_InternalError(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.cypherSvc.On("QueryWithTier", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("bolt: connection refused"))

	rec := f.post(t, "/api/v1/cypher/query", `{"query": "q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	env := decodeEnvelope(t, rec, nil)
	assert.Contains(t, env.Error, "Cypher query failed")
}

func TestHandleAsk(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.botSvc.On("Ask", mock.Anything, "What produces palmitic acid?", citation.SearchOptions{}).
		Return(&bot.Answer{
			Success: true,
			Answer:  "FAS terminates at C16 [Graph][1].",
			Classification: schemas.Classification{
				IsRelevant: true, NeedsGraph: true, Reasoning: "relationship", Confidence: 0.9,
			},
			Timings: map[string]float64{"total": 1.2},
		}, nil)

	rec := f.post(t, "/api/v1/ask", `{"query": "What produces palmitic acid?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body bot.Answer
	env := decodeEnvelope(t, rec, &body)
	assert.Equal(t, "success", env.Status)
	assert.True(t, body.Success)
	assert.Equal(t, "FAS terminates at C16 [Graph][1].", body.Answer)
	assert.True(t, body.Classification.NeedsGraph)
	assert.Contains(t, body.Timings, "total")
}

func TestHandleAsk_OutOfDomainStillOK(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.botSvc.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(&bot.Answer{Success: false, Answer: "I specialize in lipid biochemistry..."}, nil)

	rec := f.post(t, "/api/v1/ask", `{"query": "weather in Paris"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "out-of-domain is a valid answer, not an error")

	var body bot.Answer
	decodeEnvelope(t, rec, &body)
	assert.False(t, body.Success)
}

func TestHandleAsk_MissingQuery(t *testing.T) {
	f := newHandlerFixture(t, nil)
	rec := f.post(t, "/api/v1/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.botSvc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
}
