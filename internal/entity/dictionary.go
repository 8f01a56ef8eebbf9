package entity

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/internal/config"
)

// Candidate is one resolution of a normalized alias: the graph identifier
// it maps to, which KEGG database it lives in, and the species it belongs to.
type Candidate struct {
	ID       string
	Species  string
	DB       string
	AliasRaw string
}

// Dictionary holds the alias vocabulary and the automaton built over it.
// The automaton uses leftmost-longest matching, so overlapping aliases
// resolve to the longest span without post-processing.
type Dictionary struct {
	aliasMap  map[string][]Candidate
	patterns  []string
	automaton ahocorasick.AhoCorasick
}

// dictionaryCache is the gob-serializable part of a Dictionary. The
// automaton is cheap to rebuild and is not cached.
type dictionaryCache struct {
	AliasMap map[string][]Candidate
}

// LoadDictionary returns a dictionary from the gob cache when present,
// otherwise builds it from the alias CSVs and writes the cache.
func LoadDictionary(cfg config.EntityConfig, logger *zap.Logger) (*Dictionary, error) {
	logger = logger.Named("entity_dictionary")

	if cfg.CachePath != "" {
		if dict, err := loadCache(cfg.CachePath); err == nil {
			logger.Info("Loaded alias dictionary from cache",
				zap.String("path", cfg.CachePath),
				zap.Int("aliases", len(dict.aliasMap)),
			)
			return dict, nil
		}
	}

	dict, err := BuildFromCSVDir(cfg.AliasDir, cfg.MinLength, logger)
	if err != nil {
		return nil, err
	}

	if cfg.CachePath != "" {
		if err := dict.SaveCache(cfg.CachePath); err != nil {
			logger.Warn("Failed to write alias dictionary cache", zap.Error(err))
		}
	}
	return dict, nil
}

// BuildFromCSVDir reads every ID_map_*.csv in dir and builds the alias
// dictionary. Each CSV carries id,name[,species] columns; the source
// database is inferred from the filename.
func BuildFromCSVDir(dir string, minLength int, logger *zap.Logger) (*Dictionary, error) {
	files, err := filepath.Glob(filepath.Join(dir, "ID_map_*.csv"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ID_map_*.csv files found in %s", dir)
	}
	sort.Strings(files)

	if minLength <= 0 {
		minLength = 2
	}

	aliasMap := make(map[string][]Candidate)
	total := 0
	for _, file := range files {
		db := inferDBFromFilename(file)
		n, err := loadAliasFile(file, db, minLength, aliasMap)
		if err != nil {
			return nil, fmt.Errorf("failed to load alias file %s: %w", file, err)
		}
		total += n
	}

	logger.Info("Built alias dictionary",
		zap.Int("files", len(files)),
		zap.Int("entries", total),
		zap.Int("aliases", len(aliasMap)),
	)
	return newDictionary(aliasMap), nil
}

func loadAliasFile(path, db string, minLength int, aliasMap map[string][]Candidate) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, err
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idCol, ok := cols["id"]
	if !ok {
		return 0, fmt.Errorf("missing 'id' column")
	}
	nameCol, ok := cols["name"]
	if !ok {
		return 0, fmt.Errorf("missing 'name' column")
	}
	speciesCol, hasSpecies := cols["species"]

	count := 0
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if idCol >= len(record) || nameCol >= len(record) {
			continue
		}

		name := record[nameCol]
		alias := Normalize(name)
		if alias == "" || len(alias) < minLength {
			continue
		}

		species := "all"
		if hasSpecies && speciesCol < len(record) && record[speciesCol] != "" {
			species = strings.ToLower(record[speciesCol])
		}

		aliasMap[alias] = append(aliasMap[alias], Candidate{
			ID:       record[idCol],
			Species:  species,
			DB:       db,
			AliasRaw: name,
		})
		count++
	}
	return count, nil
}

func inferDBFromFilename(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "compound"):
		return "compound"
	case strings.Contains(name, "enzyme"):
		return "ec"
	case strings.Contains(name, "reaction"):
		return "reaction"
	case strings.Contains(name, "pathway"):
		return "pathway"
	case strings.Contains(name, "ortholog"):
		return "ortholog"
	case strings.Contains(name, "gene"):
		return "gene"
	default:
		return "other"
	}
}

func newDictionary(aliasMap map[string][]Candidate) *Dictionary {
	patterns := make([]string, 0, len(aliasMap))
	for alias := range aliasMap {
		patterns = append(patterns, alias)
	}
	sort.Strings(patterns)

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.LeftMostLongestMatch,
		DFA:       true,
	})

	return &Dictionary{
		aliasMap:  aliasMap,
		patterns:  patterns,
		automaton: builder.Build(patterns),
	}
}

// Lookup returns the candidates for an already-normalized alias.
func (d *Dictionary) Lookup(alias string) []Candidate {
	return d.aliasMap[alias]
}

// Size returns the number of distinct normalized aliases.
func (d *Dictionary) Size() int {
	return len(d.aliasMap)
}

// aliasMatch is one automaton hit over normalized text.
type aliasMatch struct {
	Alias string
	Start int
	End   int
}

// FindAll scans normalized text for dictionary aliases. Matches are
// leftmost-longest and therefore non-overlapping.
func (d *Dictionary) FindAll(normalizedText string) []aliasMatch {
	matches := d.automaton.FindAll(normalizedText)
	out := make([]aliasMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, aliasMatch{
			Alias: d.patterns[m.Pattern()],
			Start: m.Start(),
			End:   m.End(),
		})
	}
	return out
}

// SaveCache writes the alias map to a gob file.
func (d *Dictionary) SaveCache(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(dictionaryCache{AliasMap: d.aliasMap})
}

func loadCache(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cache dictionaryCache
	if err := gob.NewDecoder(f).Decode(&cache); err != nil {
		return nil, fmt.Errorf("failed to decode alias cache: %w", err)
	}
	if len(cache.AliasMap) == 0 {
		return nil, fmt.Errorf("alias cache at %s is empty", path)
	}
	return newDictionary(cache.AliasMap), nil
}
