package citation

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/yqzn9/lipidbot/api/schemas"
)

// FuseMethod selects how per-retriever rankings are combined.
type FuseMethod string

const (
	// FuseRRF is reciprocal rank fusion: score += 1/(k+rank) per list.
	FuseRRF FuseMethod = "rrf"
	// FuseVote ranks by how many retrievers returned the result.
	FuseVote FuseMethod = "vote"
	// FuseMax ranks by the best raw score across retrievers. Only sound
	// when the retriever scores are comparable.
	FuseMax FuseMethod = "max"
)

// FuseKey selects the identity under which duplicate hits are merged.
type FuseKey string

const (
	// KeyChunk merges per (citation_id, chunk_id).
	KeyChunk FuseKey = "chunk"
	// KeyCitation merges per citation_id, collapsing chunks of one paper.
	KeyCitation FuseKey = "citation_id"
)

// FuseOptions parameterizes one fusion pass.
type FuseOptions struct {
	Method FuseMethod
	Per    FuseKey
	RRFK   int
	TopK   int
}

func (o FuseOptions) validate() error {
	switch o.Method {
	case FuseRRF, FuseVote, FuseMax:
	default:
		return fmt.Errorf("unknown fusion method %q", o.Method)
	}
	switch o.Per {
	case KeyChunk, KeyCitation:
	default:
		return fmt.Errorf("unknown fusion key %q", o.Per)
	}
	if o.Method == FuseRRF && o.RRFK <= 0 {
		return fmt.Errorf("rrf_k must be positive, got %d", o.RRFK)
	}
	return nil
}

const unranked = 1 << 20

type fuseState struct {
	payload   schemas.Hit
	bestScore float64
	bestRank  int
	votes     int
	score     float64
}

// Fuse merges ranked result lists from independent retrievers into one
// ranking. Raw scores from different retrievers are never compared across
// lists (except under FuseMax); the returned hits carry the best raw score
// seen for each result.
func Fuse(resultLists [][]schemas.Hit, opts FuseOptions) ([]schemas.Hit, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	keyOf := func(h schemas.Hit) string {
		if opts.Per == KeyChunk {
			return h.CitationID + "\x00" + strconv.Itoa(h.ChunkID)
		}
		return h.CitationID
	}

	states := make(map[string]*fuseState)
	var order []string

	for _, hits := range resultLists {
		for i, h := range hits {
			rank := i + 1
			k := keyOf(h)

			st, ok := states[k]
			if !ok {
				st = &fuseState{
					payload:   h,
					bestScore: h.Score,
					bestRank:  unranked,
				}
				if opts.Method == FuseMax {
					st.score = h.Score
				}
				states[k] = st
				order = append(order, k)
			} else if h.Score > st.bestScore {
				st.payload = h
				st.bestScore = h.Score
			}

			switch opts.Method {
			case FuseRRF:
				st.score += 1.0 / float64(opts.RRFK+rank)
				if rank < st.bestRank {
					st.bestRank = rank
				}
			case FuseVote:
				st.votes++
			case FuseMax:
				if h.Score > st.score {
					st.score = h.Score
				}
			}
		}
	}

	keys := make([]string, len(order))
	copy(keys, order)

	less := func(a, b *fuseState) bool {
		switch opts.Method {
		case FuseVote:
			if a.votes != b.votes {
				return a.votes > b.votes
			}
			return a.bestScore > b.bestScore
		case FuseRRF:
			if a.score != b.score {
				return a.score > b.score
			}
			return a.bestRank < b.bestRank
		default: // FuseMax
			return a.score > b.score
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return less(states[keys[i]], states[keys[j]])
	})

	topK := opts.TopK
	if topK <= 0 || topK > len(keys) {
		topK = len(keys)
	}
	out := make([]schemas.Hit, 0, topK)
	for _, k := range keys[:topK] {
		st := states[k]
		h := st.payload
		h.Score = st.bestScore
		out = append(out, h)
	}
	return out, nil
}
