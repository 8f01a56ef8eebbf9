package schemas

// CitationRecord is one literature entry (title + abstract) as loaded from
// the citation corpus CSV.
type CitationRecord struct {
	CitationID string `json:"citation_id"`
	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
}

// Chunk is a sentence-window slice of a citation, the unit that gets
// indexed and retrieved.
type Chunk struct {
	CitationID string `json:"citation_id"`
	ChunkID    int    `json:"chunk_id"`
	Text       string `json:"text"`
	Title      string `json:"title"`
}

// Hit is a scored retrieval result. Scores from different retrievers are
// not comparable; fusion works on ranks and keeps the best raw score for
// display.
type Hit struct {
	Score      float64 `json:"score"`
	CitationID string  `json:"citation_id"`
	ChunkID    int     `json:"chunk_id"`
	Text       string  `json:"text"`
	Title      string  `json:"title"`
}
