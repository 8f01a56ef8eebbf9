package schemas

// Classification is the triage verdict for an incoming question: whether it
// belongs to the lipid biochemistry domain at all, and whether answering it
// requires traversing the knowledge graph (as opposed to literature alone).
type Classification struct {
	IsRelevant bool    `json:"is_relevant"`
	NeedsGraph bool    `json:"needs_graph"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// EntityMention is a dictionary or pattern match found in a question,
// resolved to a knowledge-graph identifier.
type EntityMention struct {
	Text    string  `json:"text"`
	ID      string  `json:"id"`
	DB      string  `json:"db"`
	Species string  `json:"species"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Source  string  `json:"src"`
	Score   float64 `json:"score,omitempty"`
}
