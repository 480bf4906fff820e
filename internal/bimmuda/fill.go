package bimmuda

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/lyrics"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

// Filler links Top-5 chart rows to BiMMuDa records and resolves the matched
// ids to lyric text. Linkage decides identity only; payload resolution
// happens here, after the fact.
type Filler struct {
	norm   *normalize.Normalizer
	cfg    linkage.Config
	logger *slog.Logger
}

// NewFiller creates a fill stage with the given linkage parameters.
func NewFiller(norm *normalize.Normalizer, cfg linkage.Config, logger *slog.Logger) *Filler {
	return &Filler{norm: norm, cfg: cfg, logger: logger}
}

// Result pairs the filled rows with the full audit trail, one decision per
// input row, misses included.
type Result struct {
	Rows      []lyrics.Row
	Decisions []linkage.Decision
}

// Fill links every chart entry against the dataset under root. The reference
// pool combines the per-song metadata (exact-key joinable) with every loose
// lyric file found by the walk, so a row that misses the metadata can still
// land on a file label. Rows whose match resolves to no readable lyric text
// stay empty but keep their decision.
func (f *Filler) Fill(entries []chart.Entry, root string) (*Result, error) {
	meta, err := LoadMetadata(root)
	if err != nil {
		return nil, err
	}
	files, err := LoadCandidatePool(root)
	if err != nil {
		return nil, err
	}

	metaByID := make(map[string]MetaRow, len(meta))
	textByID := make(map[string]string, len(files))
	pool := make([]*linkage.Record, 0, len(meta)+len(files))
	for _, m := range meta {
		id := strconv.Itoa(m.Year) + "-" + strconv.Itoa(m.Position)
		metaByID[id] = m
		pool = append(pool, linkage.NewMetadataRecord(f.norm, id, m.Year, m.Position, m.Title, m.Artist))
	}
	for _, pf := range files {
		textByID[pf.Path] = pf.Text
		pool = append(pool, linkage.NewFreeTextRecord(f.norm, pf.Path, pf.Label))
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("dataset at %s yielded no reference records", root)
	}

	linker := linkage.NewLinker(f.norm, pool, f.cfg, f.logger)
	queries := make([]linkage.Query, len(entries))
	for i, e := range entries {
		queries[i] = linkage.Query{Year: e.Year, Rank: e.Rank, Title: e.Title, Artist: e.Artist}
	}
	decisions := linker.LinkAll(queries)

	rows := make([]lyrics.Row, len(entries))
	filled := 0
	for i, d := range decisions {
		rows[i] = lyrics.Row{Entry: entries[i]}
		if !d.Matched() {
			continue
		}
		if text := f.resolve(root, d.MatchedID, metaByID, textByID); text != "" {
			rows[i].Lyrics = text
			filled++
		}
	}

	f.logger.Info("bimmuda fill complete",
		slog.Int("rows", len(rows)),
		slog.Int("filled", filled),
		slog.Int("pool", len(pool)))
	return &Result{Rows: rows, Decisions: decisions}, nil
}

func (f *Filler) resolve(root, id string, metaByID map[string]MetaRow, textByID map[string]string) string {
	if m, ok := metaByID[id]; ok {
		return LyricsByPosition(root, m.Year, m.Position)
	}
	return textByID[id]
}
