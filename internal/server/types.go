package server

import "github.com/yqzn9/lipidbot/internal/citation"

// SearchRequest is the body of POST /api/v1/citation/search. Zero values
// fall back to the configured retrieval defaults.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	// Fuse selects the fusion method: "rrf", "vote" or "max".
	Fuse string `json:"fuse,omitempty"`
	// Per selects the dedup key: "chunk" or "citation_id".
	Per  string `json:"per,omitempty"`
	RRFK int    `json:"rrf_k,omitempty"`
}

func (r SearchRequest) searchOptions() citation.SearchOptions {
	return citation.SearchOptions{
		TopK:   r.TopK,
		Method: citation.FuseMethod(r.Fuse),
		Per:    citation.FuseKey(r.Per),
		RRFK:   r.RRFK,
	}
}

// CypherQueryRequest is the body of POST /api/v1/cypher/query. Tier
// optionally picks the model tier ("fast" or "powerful") for generation.
type CypherQueryRequest struct {
	Query string `json:"query"`
	Tier  string `json:"tier,omitempty"`
}

// AskRequest is the body of POST /api/v1/ask. The retrieval knobs tune
// the citation leg of the pipeline.
type AskRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	Fuse  string `json:"fuse,omitempty"`
	Per   string `json:"per,omitempty"`
	RRFK  int    `json:"rrf_k,omitempty"`
}

func (r AskRequest) searchOptions() citation.SearchOptions {
	return SearchRequest{TopK: r.TopK, Fuse: r.Fuse, Per: r.Per, RRFK: r.RRFK}.searchOptions()
}

// APIResponse is the standardized response envelope: status "success"
// with a data payload, or status "error" with a message.
type APIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CypherQueryResponse is the data payload of POST /api/v1/cypher/query.
type CypherQueryResponse struct {
	Success     bool             `json:"success"`
	Data        []map[string]any `json:"data"`
	CypherQuery string           `json:"cypher_query"`
	Query       string           `json:"query"`
}
