package citation

import (
	"strings"
	"unicode"

	"github.com/yqzn9/lipidbot/api/schemas"
)

// Abbreviations that end with a period but do not terminate a sentence.
// Biology abstracts are full of these.
var sentenceAbbrevs = map[string]struct{}{
	"al":   {},
	"cf":   {},
	"e.g":  {},
	"eq":   {},
	"et":   {},
	"fig":  {},
	"figs": {},
	"i.e":  {},
	"no":   {},
	"sp":   {},
	"spp":  {},
	"subsp": {},
	"var":  {},
	"vs":   {},
}

// splitSentences breaks text into sentences on ., ! and ? followed by
// whitespace and a capitalized or numeric continuation. Single-letter
// initials ("E. coli") and common abbreviations are kept intact.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var sents []string
	start := 0

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		// Need trailing whitespace to qualify as a boundary.
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		// The next sentence should open with an uppercase letter, a digit
		// or an opening bracket/quote.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j >= len(runes) {
			break
		}
		next := runes[j]
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) && next != '(' && next != '[' && next != '"' {
			continue
		}
		if ch == '.' {
			word := trailingWord(runes[start:i])
			if isAbbreviation(word) {
				continue
			}
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sents = append(sents, s)
		}
		start = j
		i = j - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sents = append(sents, s)
	}
	return sents
}

// trailingWord returns the final period-free token of the rune slice.
func trailingWord(runes []rune) string {
	end := len(runes)
	startIdx := end
	for startIdx > 0 {
		r := runes[startIdx-1]
		if unicode.IsSpace(r) || r == '(' || r == '[' {
			break
		}
		startIdx--
	}
	return string(runes[startIdx:end])
}

func isAbbreviation(word string) bool {
	if word == "" {
		return false
	}
	// Single-letter initials such as "E." in "E. coli".
	if len([]rune(word)) == 1 {
		return true
	}
	_, ok := sentenceAbbrevs[strings.ToLower(word)]
	return ok
}

// ChunkText slices text into sentence windows of at most chunkSize words,
// carrying roughly chunkOverlap words of trailing context into the next
// window. Sentences are never split mid-way, so a single long sentence
// may exceed chunkSize.
func ChunkText(text string, chunkSize, chunkOverlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sents := splitSentences(text)
	var chunks []string
	var current []string
	curWords := 0

	wordCount := func(s string) int { return len(strings.Fields(s)) }

	for _, s := range sents {
		w := wordCount(s)
		if len(current) > 0 && curWords+w > chunkSize {
			chunks = append(chunks, strings.Join(current, " "))

			// Rebuild the overlap by walking sentences backward until
			// enough words are kept.
			var keep []string
			kept := 0
			for i := len(current) - 1; i >= 0; i-- {
				keep = append(keep, current[i])
				kept += wordCount(current[i])
				if kept >= chunkOverlap {
					break
				}
			}
			current = current[:0]
			for i := len(keep) - 1; i >= 0; i-- {
				current = append(current, keep[i])
			}
			curWords = kept
		}

		current = append(current, s)
		curWords += w
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// BuildChunks expands a citation corpus into indexable chunks. The chunked
// text is the title plus the abstract; records with neither are skipped.
func BuildChunks(records []schemas.CitationRecord, chunkSize, chunkOverlap int) []schemas.Chunk {
	var out []schemas.Chunk

	for _, rec := range records {
		base := rec.Title
		if rec.Abstract != "" {
			base += "\n" + rec.Abstract
		}
		if strings.TrimSpace(base) == "" {
			continue
		}

		for i, txt := range ChunkText(base, chunkSize, chunkOverlap) {
			out = append(out, schemas.Chunk{
				CitationID: rec.CitationID,
				ChunkID:    i,
				Text:       txt,
				Title:      rec.Title,
			})
		}
	}
	return out
}
