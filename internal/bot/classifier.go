package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/llmutil"
)

const classificationPrompt = `You are analyzing queries for a lipid biochemistry knowledge graph database.

**OUR KNOWLEDGE GRAPH CONTAINS:**

**Nodes:** Gene, Compound, Reaction, Pathway, EC (enzymes), Ortholog, FunctionalUnit

**Relationships (what we can answer):**
- Gene→EC (what enzyme does gene X encode?)
- Compound→Reaction (what reactions use/produce compound X?)
- EC→Reaction (what reactions does enzyme X catalyze?)
- Pathway→Reaction (what reactions are in pathway X?)
- Gene→Ortholog→EC (gene families and their functions)

**USER QUERY:** "%s"

**ANSWER TWO QUESTIONS:**

1. **Is this relevant to lipid biology, fatty acids, metabolic pathways, or biochemistry?**
   - YES: lipids, fatty acids, genes, enzymes, metabolic reactions, biochemical pathways
   - NO: weather, sports, politics, general knowledge unrelated to biology

2. **Does answering this require our knowledge graph?**
   - YES if asking about:
     * Relationships between entities ("What reactions produce X?", "What enzyme does gene Y encode?")
     * Pathway structure ("What reactions are in pathway X?")
     * Entity connections ("What compounds are substrates of enzyme Y?")
   - NO if asking about:
     * Mechanisms ("How does X work?", "Why does X happen?")
     * Health effects ("What are benefits of X?")
     * General properties that need literature ("What foods contain X?")
     * Single entity properties ("What is the formula of X?" - but may still use graph)

**EXAMPLES:**

Query: "What reactions produce linoleic acid?"
→ is_relevant: true, needs_graph: true (requires Compound→Reaction traversal)

Query: "How does DHA reduce inflammation?"
→ is_relevant: true, needs_graph: false (mechanism, not structure - needs literature)

Query: "What enzyme does FADS2 encode?"
→ is_relevant: true, needs_graph: true (requires Gene→EC relationship)

Query: "What are health benefits of omega-3?"
→ is_relevant: true, needs_graph: false (clinical effects, not pathway structure)

Query: "What's the weather in Paris?"
→ is_relevant: false, needs_graph: false (not biology)

Query: "What pathways contain COX-2?"
→ is_relevant: true, needs_graph: true (requires Pathway→Reaction→EC traversal)

Query: "What is the chemical formula of EPA?"
→ is_relevant: true, needs_graph: false (property lookup, literature is better)

Respond in JSON:
{
    "is_relevant": true/false,
    "needs_graph": true/false,
    "reasoning": "Brief explanation of both decisions",
    "confidence": 0.0-1.0
}
`

// Classifier triages incoming questions: in-domain or not, and whether
// the graph is needed to answer.
type Classifier struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

func NewClassifier(llm schemas.LLMClient, logger *zap.Logger) *Classifier {
	return &Classifier{
		llm:    llm,
		logger: logger.Named("classifier"),
	}
}

// Classify returns an error only when the model call itself fails. A
// malformed verdict falls back to treating the question as in-domain with
// graph retrieval enabled, so a flaky model never blocks an answer.
func (c *Classifier) Classify(ctx context.Context, question string) (schemas.Classification, error) {
	resp, err := c.llm.Generate(ctx, schemas.GenerationRequest{
		UserPrompt: fmt.Sprintf(classificationPrompt, question),
		Tier:       schemas.TierFast,
		Options:    schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		return schemas.Classification{}, fmt.Errorf("classification call failed: %w", err)
	}

	parsed, err := llmutil.ParseJSONResponse[schemas.Classification](resp)
	if err != nil {
		c.logger.Warn("Classification response unparseable, defaulting to safe mode", zap.Error(err))
		return schemas.Classification{
			IsRelevant: true,
			NeedsGraph: true,
			Reasoning:  "Parse failure, defaulting to safe mode",
			Confidence: 0.5,
		}, nil
	}

	c.logger.Info("Question classified",
		zap.Bool("is_relevant", parsed.IsRelevant),
		zap.Bool("needs_graph", parsed.NeedsGraph),
		zap.Float64("confidence", parsed.Confidence),
		zap.String("reasoning", parsed.Reasoning),
	)
	return *parsed, nil
}
