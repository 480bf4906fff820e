package bow

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/filesystem"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

// JoinedRow is one chart row successfully joined to a bag-of-words track,
// with the track's distributional stats attached.
type JoinedRow struct {
	chart.Entry
	Stats
	TrackID   string
	Score     int
	MXMArtist string
	MXMTitle  string
}

// Result pairs the joined rows with the full decision trail. Rows exist only
// for queries that both matched and resolved to a payload; decisions exist
// for every query.
type Result struct {
	Rows      []JoinedRow
	Decisions []linkage.Decision
}

// Joiner links chart rows to matches-file records and resolves the winners
// to their bag-of-words payloads.
type Joiner struct {
	norm   *normalize.Normalizer
	cfg    linkage.Config
	logger *slog.Logger
}

// NewJoiner creates a join stage with the given linkage parameters.
func NewJoiner(norm *normalize.Normalizer, cfg linkage.Config, logger *slog.Logger) *Joiner {
	return &Joiner{norm: norm, cfg: cfg, logger: logger}
}

// Join links every entry against the matches records. The reference pool
// carries no year or position, so every accepted match comes out of the
// blocked global stage. A match whose track id is absent from the dataset
// yields a decision but no row.
func (j *Joiner) Join(entries []chart.Entry, matches []Match, ds *Dataset) (*Result, error) {
	if len(matches) == 0 {
		return nil, fmt.Errorf("empty matches pool")
	}

	matchByID := make(map[string]Match, len(matches))
	pool := make([]*linkage.Record, 0, len(matches))
	for _, m := range matches {
		matchByID[m.MSDID] = m
		pool = append(pool, linkage.NewBagOfWordsRecord(j.norm, m.MSDID, m.Title, m.Artist))
	}

	linker := linkage.NewLinker(j.norm, pool, j.cfg, j.logger)
	queries := make([]linkage.Query, len(entries))
	for i, e := range entries {
		queries[i] = linkage.Query{Year: e.Year, Rank: e.Rank, Title: e.Title, Artist: e.Artist}
	}
	decisions := linker.LinkAll(queries)

	var rows []JoinedRow
	for i, d := range decisions {
		if !d.Matched() {
			continue
		}
		m := matchByID[d.MatchedID]
		pairs, ok := ds.Lookup(m.MSDID, m.MXMID)
		if !ok {
			continue
		}
		tid := m.MSDID
		if _, msd := ds.Tracks[m.MSDID]; !msd {
			tid = m.MXMID
		}
		rows = append(rows, JoinedRow{
			Entry:     entries[i],
			Stats:     ComputeStats(pairs),
			TrackID:   tid,
			Score:     d.Score,
			MXMArtist: m.Artist,
			MXMTitle:  m.Title,
		})
	}

	j.logger.Info("bow join complete",
		slog.Int("queries", len(queries)),
		slog.Int("joined", len(rows)),
		slog.Int("pool", len(pool)))
	return &Result{Rows: rows, Decisions: decisions}, nil
}

// WriteCSV writes the joined rows, sorted as given, in the layout downstream
// analysis expects.
func WriteCSV(path string, rows []JoinedRow) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"year", "rank", "title", "artist", "total", "ttr", "entropy", "hhi", "max_p", "bow_tid", "match_score", "artist_mxm", "title_mxm"}); err != nil {
		return fmt.Errorf("writing bow csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Rank),
			r.Title,
			r.Artist,
			strconv.Itoa(r.Total),
			formatFloat(r.TTR),
			formatFloat(r.Entropy),
			formatFloat(r.HHI),
			formatFloat(r.MaxP),
			r.TrackID,
			strconv.Itoa(r.Score),
			r.MXMArtist,
			r.MXMTitle,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing bow csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing bow csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// ReadCSV reads a table written by WriteCSV, for the downstream comparison
// stage. Malformed rows are skipped.
func ReadCSV(path string) ([]JoinedRow, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening bow csv: %w", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bow csv: %w", err)
	}

	var rows []JoinedRow
	for i, rec := range records {
		if i == 0 || len(rec) < 13 {
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
		row := JoinedRow{Entry: chart.Entry{Year: year, Rank: rank, Title: rec[2], Artist: rec[3]}}
		row.Total, _ = strconv.Atoi(rec[4])
		row.TTR = parseFloat(rec[5])
		row.Entropy = parseFloat(rec[6])
		row.HHI = parseFloat(rec[7])
		row.MaxP = parseFloat(rec[8])
		row.TrackID = rec[9]
		row.Score, _ = strconv.Atoi(rec[10])
		row.MXMArtist = rec[11]
		row.MXMTitle = rec[12]
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
