package entity

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/llmutil"
)

// dbPriority orders databases when several candidates claim the same span.
var dbPriority = map[string]int{
	"gene":     0,
	"ortholog": 1,
	"compound": 2,
	"ec":       3,
	"reaction": 4,
	"pathway":  5,
	"-":        6,
}

// srcPriority orders extraction sources: exact dictionary matches beat
// pattern matches beat model-proposed mentions.
var srcPriority = map[string]int{
	"ac":          0,
	"regex-exact": 1,
	"regex-id":    2,
	"llm-exact":   3,
}

var enzymeSuffixRe = regexp.MustCompile(`(?i)\b[a-z][a-z0-9\-\s]{0,60}?(dehydrogenase|oxidoreductase|oxygenase|monooxygenase|dioxygenase|kinase|phosphatase|phospholipase|carboxylase|carboxykinase|synthase|synthetase|transferase|acyltransferase|aminotransferase|lyase|dehydratase|hydrolase|isomerase|mutase|epimerase|racemase|ligase|cyclase|reductase)\b`)

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bC\d{5}\b`),                                 // compound
	regexp.MustCompile(`\bK\d{5}\b`),                                 // ortholog
	regexp.MustCompile(`\bR\d{5}\b`),                                 // reaction
	regexp.MustCompile(`(?i)\b(?:EC[:\s])?\d+\.\d+\.\d+\.(?:\d+|-|x|n)\b`), // EC
}

var ecPrefixStripRe = regexp.MustCompile(`(?i)^EC[:\s]*`)

// speciesHints maps organism words in a question to KEGG species codes.
var speciesHints = map[string]string{
	"arabidopsis":      "ath",
	"ath":              "ath",
	"thaliana":         "ath",
	"soybean":          "gmx",
	"glycine":          "gmx",
	"gmx":              "gmx",
	"camelina":         "csat",
	"csat":             "csat",
	"aegilops tauschii": "ats",
	"ats":              "ats",
}

// Extractor finds knowledge-graph entities mentioned in a question by
// combining dictionary scanning, explicit ID patterns, enzyme-name
// patterns, and optionally model-proposed mentions.
type Extractor struct {
	dict   *Dictionary
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewExtractor builds an extractor. llm may be nil, which disables the
// model-proposed mention source.
func NewExtractor(dict *Dictionary, llm schemas.LLMClient, logger *zap.Logger) *Extractor {
	return &Extractor{
		dict:   dict,
		llm:    llm,
		logger: logger.Named("entity_extractor"),
	}
}

// ExtractMentions returns the deduplicated entity mentions in a question,
// sorted left to right and then by database priority.
func (e *Extractor) ExtractMentions(ctx context.Context, question string) []schemas.EntityMention {
	normalized := Normalize(question)
	species := guessSpeciesHint(question)

	var hits []schemas.EntityMention
	hits = append(hits, e.extractDictionary(normalized, species)...)
	hits = append(hits, e.extractExplicitIDs(question)...)
	hits = append(hits, e.extractEnzymePhrases(question, species)...)
	if e.llm != nil {
		hits = append(hits, e.extractLLM(ctx, question, species)...)
	}

	deduped := deduplicate(hits)

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Start != deduped[j].Start {
			return deduped[i].Start < deduped[j].Start
		}
		return dbRank(deduped[i].DB) < dbRank(deduped[j].DB)
	})

	e.logger.Debug("Extracted entity mentions",
		zap.Int("count", len(deduped)),
		zap.String("species_hint", species),
	)
	return deduped
}

// extractDictionary scans the normalized question with the alias
// automaton. Positions refer to the normalized text.
func (e *Extractor) extractDictionary(normalized, species string) []schemas.EntityMention {
	var hits []schemas.EntityMention
	for _, m := range e.dict.FindAll(normalized) {
		for _, c := range e.dict.Lookup(m.Alias) {
			if !speciesAllowed(c.Species, species) {
				continue
			}
			hits = append(hits, schemas.EntityMention{
				Text:    m.Alias,
				ID:      c.ID,
				DB:      c.DB,
				Species: c.Species,
				Start:   m.Start,
				End:     m.End,
				Source:  "ac",
				Score:   1.0,
			})
		}
	}
	return hits
}

// extractExplicitIDs finds literal KEGG identifiers (C00001, K00001,
// R00001, EC numbers) in the raw question.
func (e *Extractor) extractExplicitIDs(question string) []schemas.EntityMention {
	var hits []schemas.EntityMention
	seen := map[[2]int]bool{}

	for _, pattern := range idPatterns {
		for _, loc := range pattern.FindAllStringIndex(question, -1) {
			span := [2]int{loc[0], loc[1]}
			if seen[span] {
				continue
			}
			seen[span] = true

			raw := question[loc[0]:loc[1]]
			var db, id string
			switch raw[0] {
			case 'K', 'k':
				db, id = "ortholog", strings.ToUpper(raw)
			case 'C', 'c':
				db, id = "compound", strings.ToUpper(raw)
			case 'R', 'r':
				db, id = "reaction", strings.ToUpper(raw)
			default:
				db, id = "ec", ecPrefixStripRe.ReplaceAllString(strings.TrimSpace(raw), "")
			}

			hits = append(hits, schemas.EntityMention{
				Text:    raw,
				ID:      id,
				DB:      db,
				Species: "-",
				Start:   loc[0],
				End:     loc[1],
				Source:  "regex-id",
				Score:   1.0,
			})
		}
	}
	return hits
}

// extractEnzymePhrases finds enzyme-suffixed name phrases and resolves
// them through the dictionary. The pattern is anchored on the suffix and
// tends to swallow leading words ("which gene encodes fatty acid
// synthase"), so unresolved phrases retry with leading tokens stripped.
func (e *Extractor) extractEnzymePhrases(question, species string) []schemas.EntityMention {
	allowed := map[string]bool{"ec": true, "ortholog": true}

	var hits []schemas.EntityMention
	for _, loc := range enzymeSuffixRe.FindAllStringIndex(question, -1) {
		phrase := question[loc[0]:loc[1]]
		offset := 0
		for {
			sub := phrase[offset:]
			found := e.mapSpan(sub, loc[0]+offset, loc[1], species, allowed)
			if len(found) > 0 {
				hits = append(hits, found...)
				break
			}
			cut := strings.IndexAny(sub, " \t")
			if cut < 0 {
				break
			}
			offset += cut + 1
		}
	}
	return hits
}

// mapSpan resolves a text span via exact normalized alias lookup.
func (e *Extractor) mapSpan(text string, start, end int, species string, allowedDBs map[string]bool) []schemas.EntityMention {
	var hits []schemas.EntityMention
	for _, c := range e.dict.Lookup(Normalize(text)) {
		if allowedDBs != nil && !allowedDBs[c.DB] {
			continue
		}
		if !speciesAllowed(c.Species, species) {
			continue
		}
		hits = append(hits, schemas.EntityMention{
			Text:    text,
			ID:      c.ID,
			DB:      c.DB,
			Species: c.Species,
			Start:   start,
			End:     end,
			Source:  "regex-exact",
			Score:   0.98,
		})
	}
	return hits
}

type llmMentionPayload struct {
	Mentions []struct {
		Text  string `json:"text"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"mentions"`
}

// extractLLM asks the fast model tier for entity mentions, validates the
// reported spans, and resolves them through the dictionary.
func (e *Extractor) extractLLM(ctx context.Context, question, species string) []schemas.EntityMention {
	prompt := fmt.Sprintf(`Extract all biological/chemical entity mentions from this question.
Entities include: genes, proteins, compounds, enzymes, reactions, pathways, orthologs.

Question: %s

Return ONLY a valid JSON object with this exact format:
{
"mentions": [
    {"text": "entity name", "start": character_index, "end": character_index},
    ...
]
}

Rules:
- Include ONLY entity names (genes, proteins, compounds, enzymes, pathways, reactions)
- Provide exact character positions (0-indexed, where start is inclusive, end is exclusive)
- Don't overlap entities
- Order by appearance in the question
- Return empty array if no entities found

Now extract from the question above. Return ONLY the JSON, no other text:`, question)

	response, err := e.llm.Generate(ctx, schemas.GenerationRequest{
		UserPrompt: prompt,
		Tier:       schemas.TierFast,
		Options:    schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		e.logger.Warn("Model entity extraction failed", zap.Error(err))
		return nil
	}

	payload, err := llmutil.ParseJSONResponse[llmMentionPayload](response)
	if err != nil {
		e.logger.Warn("Could not parse entity extraction response", zap.Error(err))
		return nil
	}

	var hits []schemas.EntityMention
	for _, m := range payload.Mentions {
		if m.Text == "" || m.Start < 0 || m.Start >= m.End || m.End > len(question) {
			continue
		}

		text, start, end := m.Text, m.Start, m.End
		allowed := map[string]bool(nil)
		// When the model returns a long phrase, narrow it to the enzyme
		// name inside it.
		if loc := enzymeSuffixRe.FindStringIndex(text); loc != nil {
			start = m.Start + loc[0]
			end = m.Start + loc[1]
			text = m.Text[loc[0]:loc[1]]
			allowed = map[string]bool{"ec": true, "ortholog": true}
		}

		for _, c := range e.dict.Lookup(Normalize(text)) {
			if allowed != nil && !allowed[c.DB] {
				continue
			}
			if !speciesAllowed(c.Species, species) {
				continue
			}
			hits = append(hits, schemas.EntityMention{
				Text:    text,
				ID:      c.ID,
				DB:      c.DB,
				Species: c.Species,
				Start:   start,
				End:     end,
				Source:  "llm-exact",
				Score:   0.85,
			})
		}
	}
	return hits
}

// deduplicate keeps the best hit per span, then the best hit per entity.
func deduplicate(hits []schemas.EntityMention) []schemas.EntityMention {
	bySpan := map[[2]int]schemas.EntityMention{}
	var spanOrder [][2]int
	for _, h := range hits {
		key := [2]int{h.Start, h.End}
		existing, ok := bySpan[key]
		if !ok {
			spanOrder = append(spanOrder, key)
			bySpan[key] = h
			continue
		}
		if betterHit(h, existing) {
			bySpan[key] = h
		}
	}

	byEntity := map[[3]string]schemas.EntityMention{}
	var entityOrder [][3]string
	for _, key := range spanOrder {
		h := bySpan[key]
		ek := [3]string{h.ID, h.DB, h.Species}
		existing, ok := byEntity[ek]
		if !ok {
			entityOrder = append(entityOrder, ek)
			byEntity[ek] = h
			continue
		}
		if betterHit(h, existing) {
			byEntity[ek] = h
		}
	}

	out := make([]schemas.EntityMention, 0, len(entityOrder))
	for _, ek := range entityOrder {
		out = append(out, byEntity[ek])
	}
	return out
}

func betterHit(a, b schemas.EntityMention) bool {
	ar, br := srcRank(a.Source), srcRank(b.Source)
	if ar != br {
		return ar < br
	}
	adb, bdb := dbRank(a.DB), dbRank(b.DB)
	if adb != bdb {
		return adb < bdb
	}
	return a.Score > b.Score
}

func srcRank(src string) int {
	if rank, ok := srcPriority[src]; ok {
		return rank
	}
	return 9
}

func dbRank(db string) int {
	if rank, ok := dbPriority[db]; ok {
		return rank
	}
	return 999
}

func speciesAllowed(candidate, hint string) bool {
	if hint == "" {
		return true
	}
	return candidate == hint || candidate == "all" || candidate == "-"
}

func guessSpeciesHint(question string) string {
	lower := strings.ToLower(question)
	// Longer keywords first so "aegilops tauschii" beats "ats".
	keys := make([]string, 0, len(speciesHints))
	for k := range speciesHints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, keyword := range keys {
		if strings.Contains(lower, keyword) {
			return speciesHints[keyword]
		}
	}
	return ""
}
