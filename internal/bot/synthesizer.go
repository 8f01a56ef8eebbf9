package bot

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/cypher"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const synthesisPrompt = `You are a lipid biology expert assistant.

**User Question:** "%s"

**Available Information:**
%s

**Instructions:**
1. Provide a direct, comprehensive answer to the user's question
2. Integrate insights from both database results (if available) and citations
3. Cite sources: [Graph] for database results, [1], [2], etc. for literature
4. Be clear and actionable
5. If information is limited, acknowledge gaps honestly

**Your Response:**`

// maxCitationsInPrompt caps how many hits are spelled out in the synthesis
// context.
const maxCitationsInPrompt = 10

// FormatCitations renders hits in the SOURCE_ID/TITLE/CONTENT layout the
// synthesis prompt expects. OpenAlex work IDs start with a "W"; anything
// else is treated as a PubMed ID.
func FormatCitations(hits []schemas.Hit) string {
	if len(hits) == 0 {
		return ""
	}
	if len(hits) > maxCitationsInPrompt {
		hits = hits[:maxCitationsInPrompt]
	}

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		idKey := "PubMed:" + h.CitationID
		if strings.HasPrefix(strings.ToLower(h.CitationID), "w") {
			idKey = "OpenAlex:" + h.CitationID
		}
		parts = append(parts, fmt.Sprintf("SOURCE_ID: %s\nTITLE: %s\nCONTENT: %s\n", idKey, h.Title, h.Text))
	}
	return strings.Join(parts, "\n---\n")
}

// Synthesizer turns retrieved evidence into the final answer using the
// powerful model tier.
type Synthesizer struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

func NewSynthesizer(llm schemas.LLMClient, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		llm:    llm,
		logger: logger.Named("synthesizer"),
	}
}

// buildContext assembles the evidence block of the synthesis prompt.
// Returns "No data retrieved." when both sources came back empty, so the
// model is told honestly that it has nothing to cite.
func buildContext(graphResult *cypher.Result, citations string) (string, error) {
	var parts []string

	if graphResult != nil && len(graphResult.Rows) > 0 {
		rows, err := json.MarshalIndent(graphResult.Rows, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode graph rows: %w", err)
		}
		parts = append(parts, fmt.Sprintf(
			"**Knowledge Graph Results:**\nQuery: %s\n```json\n%s\n```",
			graphResult.Cypher, rows,
		))
	}
	if citations != "" {
		parts = append(parts, "**Relevant Citations:**\n"+citations)
	}

	if len(parts) == 0 {
		return "No data retrieved.", nil
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, graphResult *cypher.Result, hits []schemas.Hit) (string, error) {
	evidence, err := buildContext(graphResult, FormatCitations(hits))
	if err != nil {
		return "", err
	}

	answer, err := s.llm.Generate(ctx, schemas.GenerationRequest{
		UserPrompt: fmt.Sprintf(synthesisPrompt, question, evidence),
		Tier:       schemas.TierPowerful,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis call failed: %w", err)
	}

	s.logger.Debug("Answer synthesized",
		zap.Int("answer_chars", len(answer)),
		zap.Int("citations", len(hits)),
	)
	return answer, nil
}
