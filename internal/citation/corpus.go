package citation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yqzn9/lipidbot/api/schemas"
)

// LoadCorpus reads the citation corpus CSV. The file must carry a header
// with citation_id, title and abstract columns; extra columns are ignored.
func LoadCorpus(path string) ([]schemas.CitationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idCol, ok := cols["citation_id"]
	if !ok {
		return nil, fmt.Errorf("corpus %s has no citation_id column", path)
	}
	titleCol, hasTitle := cols["title"]
	abstractCol, hasAbstract := cols["abstract"]
	if !hasTitle && !hasAbstract {
		return nil, fmt.Errorf("corpus %s has neither title nor abstract column", path)
	}

	field := func(row []string, idx int, ok bool) string {
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []schemas.CitationRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus row: %w", err)
		}
		id := field(row, idCol, true)
		if id == "" {
			continue
		}
		records = append(records, schemas.CitationRecord{
			CitationID: id,
			Title:      field(row, titleCol, hasTitle),
			Abstract:   field(row, abstractCol, hasAbstract),
		})
	}
	return records, nil
}
