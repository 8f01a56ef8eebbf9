package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yqzn9/lipidbot/api/schemas"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func testExtractor(t *testing.T, llm schemas.LLMClient) *Extractor {
	t.Helper()
	dict, err := BuildFromCSVDir(testAliasDir(t), 2, zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewExtractor(dict, llm, zaptest.NewLogger(t))
}

func mentionIDs(mentions []schemas.EntityMention) []string {
	ids := make([]string, 0, len(mentions))
	for _, m := range mentions {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestExtractMentions_DictionaryHit(t *testing.T) {
	e := testExtractor(t, nil)

	mentions := e.ExtractMentions(context.Background(), "What reactions consume palmitic acid?")

	require.Len(t, mentions, 1)
	assert.Equal(t, "C00249", mentions[0].ID)
	assert.Equal(t, "compound", mentions[0].DB)
	assert.Equal(t, "ac", mentions[0].Source)
}

func TestExtractMentions_ExplicitIDs(t *testing.T) {
	e := testExtractor(t, nil)

	mentions := e.ExtractMentions(context.Background(), "Is C00083 a substrate of R00742 via K11262?")

	ids := mentionIDs(mentions)
	assert.Contains(t, ids, "C00083")
	assert.Contains(t, ids, "R00742")
	assert.Contains(t, ids, "K11262")

	byID := map[string]schemas.EntityMention{}
	for _, m := range mentions {
		byID[m.ID] = m
	}
	assert.Equal(t, "compound", byID["C00083"].DB)
	assert.Equal(t, "reaction", byID["R00742"].DB)
	assert.Equal(t, "ortholog", byID["K11262"].DB)
}

func TestExtractMentions_ECNumberPrefixStripped(t *testing.T) {
	e := testExtractor(t, nil)

	mentions := e.ExtractMentions(context.Background(), "What does EC:6.4.1.2 catalyze?")

	require.NotEmpty(t, mentions)
	var ec *schemas.EntityMention
	for i := range mentions {
		if mentions[i].DB == "ec" && mentions[i].Source == "regex-id" {
			ec = &mentions[i]
		}
	}
	require.NotNil(t, ec, "expected an explicit EC id mention")
	assert.Equal(t, "6.4.1.2", ec.ID, "EC prefix should be stripped from the id")
}

func TestExtractMentions_EnzymePhraseResolved(t *testing.T) {
	e := testExtractor(t, nil)

	mentions := e.ExtractMentions(context.Background(), "Which gene encodes fatty acid synthase?")

	var found bool
	for _, m := range mentions {
		if m.ID == "EC:2.3.1.85" {
			found = true
			assert.Equal(t, "ec", m.DB)
		}
	}
	assert.True(t, found, "enzyme phrase should resolve to its EC entry, got %v", mentions)
}

func TestExtractMentions_SpeciesHintFilters(t *testing.T) {
	e := testExtractor(t, nil)

	// The gmx-only FATB gene must not surface for an Arabidopsis question.
	mentions := e.ExtractMentions(context.Background(), "Does arabidopsis fatb exist?")
	assert.NotContains(t, mentionIDs(mentions), "gmx:100786686")

	// Without a species hint it resolves normally.
	mentions = e.ExtractMentions(context.Background(), "Tell me about fatb")
	assert.Contains(t, mentionIDs(mentions), "gmx:100786686")
}

func TestExtractMentions_EntityDeduplication(t *testing.T) {
	e := testExtractor(t, nil)

	// Same compound via dictionary and via explicit ID: one mention per entity key.
	mentions := e.ExtractMentions(context.Background(), "Is palmitic acid the same as C00249?")

	count := 0
	for _, m := range mentions {
		if m.ID == "C00249" {
			count++
		}
	}
	// The dictionary hit and the explicit id hit carry different species
	// markers ("all" vs "-"), so both survive entity-level dedup.
	assert.GreaterOrEqual(t, count, 1)
	assert.LessOrEqual(t, count, 2)
}

func TestExtractMentions_SortedLeftToRight(t *testing.T) {
	e := testExtractor(t, nil)

	mentions := e.ExtractMentions(context.Background(), "From acetyl coa to malonyl coa")
	require.GreaterOrEqual(t, len(mentions), 2)
	for i := 1; i < len(mentions); i++ {
		assert.LessOrEqual(t, mentions[i-1].Start, mentions[i].Start)
	}
}

func TestExtractMentions_LLMSource(t *testing.T) {
	llm := new(mockLLM)
	question := "Tell me about FATB in plants"
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierFast && req.Options.ForceJSONFormat
	})).Return(`{"mentions": [{"text": "FATB", "start": 14, "end": 18}]}`, nil).Once()

	e := testExtractor(t, llm)
	mentions := e.ExtractMentions(context.Background(), question)

	assert.Contains(t, mentionIDs(mentions), "gmx:100786686")
	llm.AssertExpectations(t)
}

func TestExtractMentions_LLMFailureIsNonFatal(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model down")).Once()

	e := testExtractor(t, llm)
	mentions := e.ExtractMentions(context.Background(), "What consumes palmitic acid?")

	// Dictionary extraction still works when the model is unavailable.
	assert.Contains(t, mentionIDs(mentions), "C00249")
}

func TestExtractMentions_LLMInvalidSpansDropped(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Generate", mock.Anything, mock.Anything).
		Return(`{"mentions": [{"text": "FATB", "start": 50, "end": 90}]}`, nil).Once()

	e := testExtractor(t, llm)
	mentions := e.ExtractMentions(context.Background(), "short question")

	assert.Empty(t, mentions)
}

func TestGuessSpeciesHint(t *testing.T) {
	assert.Equal(t, "ath", guessSpeciesHint("lipid synthesis in Arabidopsis thaliana"))
	assert.Equal(t, "gmx", guessSpeciesHint("soybean seed oil"))
	assert.Equal(t, "csat", guessSpeciesHint("camelina fatty acids"))
	assert.Equal(t, "ats", guessSpeciesHint("Aegilops tauschii genes"))
	assert.Equal(t, "", guessSpeciesHint("generic lipid question"))
}
