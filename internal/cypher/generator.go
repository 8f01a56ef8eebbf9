package cypher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
)

// Metadata describes how a query was produced, for diagnostics and the
// API response.
type Metadata struct {
	TemplateID  string `json:"template_id,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// MentionExtractor recognizes database entities in a question. Satisfied
// by *entity.Extractor.
type MentionExtractor interface {
	ExtractMentions(ctx context.Context, question string) []schemas.EntityMention
}

// Generator turns a natural-language question into a Cypher statement by
// asking the model to pick a template from the catalog and fill its
// placeholders, or to write a custom query against the schema.
type Generator struct {
	llm       schemas.LLMClient
	extractor MentionExtractor
	logger    *zap.Logger
}

func NewGenerator(llm schemas.LLMClient, logger *zap.Logger) *Generator {
	return &Generator{
		llm:    llm,
		logger: logger.Named("cypher_generator"),
	}
}

// WithExtractor attaches an entity extractor whose mentions are listed in
// the generation prompt as grounding hints.
func (g *Generator) WithExtractor(e MentionExtractor) *Generator {
	g.extractor = e
	return g
}

var (
	markdownFenceRegex = regexp.MustCompile("\x60\x60\x60\\w*\\s*")
	responsePrefixRe   = regexp.MustCompile(`(?i)^(?:cypher|neo4j|query|here is|answer):\s*`)
	templateIDRegex    = regexp.MustCompile(`\b(T\d{3}[a-z]?)\b`)
	queryBodyRegex     = regexp.MustCompile(`(?is)(MATCH|CALL|WITH)\s+.*?RETURN\s+.*?(\n\n|\n[A-Z][a-z]+:|$)`)

	// Missing-prefix repairs. The inner patterns cannot match IDs that
	// already carry EC: or path: because of the leading quote.
	ecPrefixRegex      = regexp.MustCompile(`id:\s*['"](\d+\.\d+\.\d+\.\d+)['"]`)
	pathwayPrefixRegex = regexp.MustCompile(`id:\s*['"]([a-z]{2,3}\d{5})['"]`)
)

// Generate produces a ready-to-execute Cypher statement for the question.
// The fast model tier is used; query generation runs on every graph-backed
// request and must stay cheap.
// Generate produces a Cypher statement for the question. An empty tier
// defaults to the fast model.
func (g *Generator) Generate(ctx context.Context, question string, tier schemas.ModelTier) (string, Metadata, error) {
	var entities string
	if g.extractor != nil {
		entities = formatMentions(g.extractor.ExtractMentions(ctx, question))
	}
	prompt := buildPrompt(question, entities)
	if tier == "" {
		tier = schemas.TierFast
	}

	response, err := g.llm.Generate(ctx, schemas.GenerationRequest{
		UserPrompt: prompt,
		Tier:       tier,
	})
	if err != nil {
		return "", Metadata{}, fmt.Errorf("cypher generation failed: %w", err)
	}

	query, templateID := extractQuery(response)
	query = fixPrefixes(query)

	if query == "" {
		return "", Metadata{}, fmt.Errorf("model response contained no usable cypher query")
	}

	meta := Metadata{
		TemplateID:  templateID,
		RawResponse: truncate(response, 200),
	}

	g.logger.Debug("Generated cypher query",
		zap.String("template_id", templateID),
		zap.String("cypher", query),
	)
	return query, meta, nil
}

func buildCatalog() string {
	var b strings.Builder
	for _, t := range templates {
		fmt.Fprintf(&b, "%s: %s\n", t.ID, t.Description)
		fmt.Fprintf(&b, "   Template: %s\n", t.Cypher)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatMentions renders extracted mentions as "db: id" pairs, repairing
// missing EC: and path: prefixes the alias files omit.
func formatMentions(mentions []schemas.EntityMention) string {
	parts := make([]string, 0, len(mentions))
	for _, m := range mentions {
		id := m.ID
		switch m.DB {
		case "ec":
			if !strings.HasPrefix(id, "EC:") {
				id = "EC:" + id
			}
		case "pathway":
			if !strings.HasPrefix(id, "path:") {
				id = "path:" + id
			}
		}
		parts = append(parts, fmt.Sprintf("%s: %s", m.DB, id))
	}
	return strings.Join(parts, ", ")
}

func buildPrompt(question, entities string) string {
	var entityBlock string
	if entities != "" {
		entityBlock = fmt.Sprintf("\n[EXTRACTED ENTITIES]\n%s\n", entities)
	}
	return fmt.Sprintf(`You are a Neo4j Cypher query generator. Your task is to:
1. First, select the most appropriate response template based on the user's question
2. If a suitable template exists, fill in the placeholders with the correct values
3. Always enforce a LIMIT clause on the query
4. If NO suitable template exists, generate a custom Cypher query based on the schema

[SCHEMA]
%s

[AVAILABLE TEMPLATES]
%s

[QUESTION]
%s
%s
[INSTRUCTIONS]

STEP 1: TEMPLATE SELECTION
Analyze the question to identify:
- Entity types mentioned (Gene, Compound, Pathway, etc.)
- Entity IDs (e.g., eco:b0001, C00001, R00001, path:eco00010)
- Relationships involved (ENCODES, CATALYZES, CONTAINS, etc.)
- What the user wants to find (enzymes, reactions, pathways, etc.)
- Number of results requested (e.g., "first 5", "top 10", "all")

Review the available templates and determine if any match the query pattern.

STEP 2: QUERY GENERATION
Option A - If a suitable template is found:
Fill in ALL placeholders in the template:
- {GENE_ID} should be filled with gene IDs like "eco:b0001"
- {COMPOUND_ID} should be filled with compound IDs like "C00001"
- {REACTION_ID} should be filled with reaction IDs like "R00001"
- {PATHWAY_ID} should be filled with pathway IDs like "path:eco00010"
- {EC_ID} should be filled with EC numbers like "EC:1.1.1.1"
- {ORTHOLOG_ID} should be filled with ortholog IDs like "K00001"
- {FUNCTIONALUNIT_ID} should be filled with functional unit IDs like "M00001"
- {PREFIX} should be filled with the prefix mentioned in "starts with" queries

LIMIT RULES:
- If the question specifies a number of results ("first 5 genes", "top 10 pathways"), add that exact LIMIT
- Otherwise add "LIMIT 10" as the default

Option B - If NO suitable template exists:
Generate a custom Cypher query using the schema provided:
- Use the correct node labels and relationship types from the schema
- Use single quotes around string values
- Ensure all entity IDs have correct prefixes (EC:, path:, etc.)
- Always enforce a LIMIT clause (user-specified number, or LIMIT 10)

OUTPUT FORMAT (REQUIRED):
If using a template:
Line 1: TEMPLATE: <template_id>
Line 2: <the filled Cypher query>

If generating a custom query:
Line 1: TEMPLATE: CUSTOM
Line 2: <the generated Cypher query>

Example:
TEMPLATE: T011
MATCH (g:Gene {id: 'eco:b0001'})-[:ENCODES]->(e:EC) RETURN e LIMIT 10`,
		detailedSchema, buildCatalog(), question, entityBlock)
}

// extractQuery pulls the Cypher statement and the template id out of a raw
// model response, tolerating markdown fences and explanatory prose.
func extractQuery(response string) (string, string) {
	templateID := ""

	lines := strings.Split(strings.TrimSpace(response), "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(lines[0])), "TEMPLATE:") {
		_, after, _ := strings.Cut(lines[0], ":")
		templateID = strings.TrimSpace(after)
		lines = lines[1:]
	}
	response = strings.Join(lines, "\n")

	response = markdownFenceRegex.ReplaceAllString(response, "")
	response = strings.ReplaceAll(response, "```", "")
	response = responsePrefixRe.ReplaceAllString(response, "")

	// Drop explanation lines, harvesting a template id if one shows up there.
	var kept []string
	for _, line := range strings.Split(response, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "note:") || strings.HasPrefix(lower, "explanation:") ||
			strings.HasPrefix(lower, "this query") || strings.HasPrefix(lower, "template:") ||
			strings.HasPrefix(lower, "using template") {
			continue
		}
		if templateID == "" {
			if m := templateIDRegex.FindString(line); m != "" {
				templateID = m
			}
		}
		kept = append(kept, line)
	}
	response = strings.Join(kept, "\n")

	// Salvage just the MATCH...RETURN span if prose remains around it.
	if loc := queryBodyRegex.FindStringSubmatchIndex(response); loc != nil {
		// Cut before the terminator group (blank line or a "Word:" line).
		response = response[loc[0]:loc[4]]
	}

	return strings.TrimSpace(response), templateID
}

// fixPrefixes repairs entity IDs the model emitted without their database
// prefix (bare EC numbers and bare KEGG pathway codes).
func fixPrefixes(query string) string {
	if query == "" {
		return query
	}
	query = ecPrefixRegex.ReplaceAllString(query, "id: 'EC:$1'")
	query = pathwayPrefixRegex.ReplaceAllString(query, "id: 'path:$1'")
	return query
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
