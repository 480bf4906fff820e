// Package chart fetches Billboard Year-End Hot 100 rows. The primary source
// scrapes the Wikipedia year pages; billboard.com's own year-end pages serve
// as a fallback. A year that fails to parse yields zero rows with a warning,
// never an error that aborts the range.
package chart

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/filesystem"
)

// Entry is one Year-End Hot 100 chart row. Immutable once read.
type Entry struct {
	Year   int
	Rank   int
	Title  string
	Artist string
}

// WriteCSV writes chart entries to path atomically, sorted by (year, rank).
func WriteCSV(path string, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Rank < sorted[j].Rank
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"year", "rank", "title", "artist"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range sorted {
		row := []string{strconv.Itoa(e.Year), strconv.Itoa(e.Rank), e.Title, e.Artist}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadCSV loads chart entries from a CSV produced by WriteCSV. Rows with a
// missing or non-numeric year/rank are skipped; the core never sees
// malformed queries.
func ReadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening charts csv: %w", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading charts csv: %w", err)
	}

	var entries []Entry
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		year, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		rank, err := strconv.Atoi(row[1])
		if err != nil {
			continue
		}
		if row[2] == "" || row[3] == "" {
			continue
		}
		entries = append(entries, Entry{Year: year, Rank: rank, Title: row[2], Artist: row[3]})
	}
	return entries, nil
}
