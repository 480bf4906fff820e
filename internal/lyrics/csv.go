package lyrics

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/filesystem"
)

// WriteRowsCSV writes the lyrics table sorted by (year, rank). Lyric text is
// quoted by the encoder, so embedded newlines survive the round trip.
func WriteRowsCSV(path string, rows []Row) error {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Rank < sorted[j].Rank
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"year", "rank", "title", "artist", "lyrics_raw", "lyrics_url"}); err != nil {
		return fmt.Errorf("writing lyrics csv header: %w", err)
	}
	for _, r := range sorted {
		rec := []string{
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Rank),
			r.Title,
			r.Artist,
			r.Lyrics,
			r.URL,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing lyrics csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing lyrics csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadRowsCSV reads a lyrics table written by WriteRowsCSV. Malformed rows
// are skipped.
func ReadRowsCSV(path string) ([]Row, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening lyrics csv: %w", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading lyrics csv: %w", err)
	}

	var rows []Row
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue
		}
		year, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		rank, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		row := Row{Entry: chart.Entry{Year: year, Rank: rank, Title: rec[2], Artist: rec[3]}}
		if len(rec) > 4 {
			row.Lyrics = rec[4]
		}
		if len(rec) > 5 {
			row.URL = rec[5]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
