// Package bimmuda loads the BiMMuDa dataset (Billboard Top-5 song metadata
// and lyric files) and fills Top-5 chart rows with lyrics through the
// linkage pipeline.
package bimmuda

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

// MetaRow is one row of the per-song metadata CSV, joinable on
// (year, position).
type MetaRow struct {
	Title    string
	Artist   string
	Year     int
	Position int
}

// PoolFile is a candidate lyric file identified only by a best-effort
// display label.
type PoolFile struct {
	Label string
	Text  string
	Path  string
}

// LoadMetadata reads metadata/bimmuda_per_song_metadata.csv under root.
// Rows missing any of title/artist/year/position are dropped before they
// can reach the matcher.
func LoadMetadata(root string) ([]MetaRow, error) {
	path := filepath.Join(root, "metadata", "bimmuda_per_song_metadata.csv")
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening metadata csv: %w", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading metadata csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("metadata csv is empty")
	}

	titleIdx, artistIdx, yearIdx, posIdx := -1, -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "title":
			titleIdx = i
		case "artist":
			artistIdx = i
		case "year":
			yearIdx = i
		case "position":
			posIdx = i
		}
	}
	if titleIdx < 0 || artistIdx < 0 || yearIdx < 0 || posIdx < 0 {
		return nil, fmt.Errorf("metadata csv missing Title/Artist/Year/Position columns")
	}

	var out []MetaRow
	for _, row := range rows[1:] {
		if len(row) <= titleIdx || len(row) <= artistIdx || len(row) <= yearIdx || len(row) <= posIdx {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[yearIdx]))
		if err != nil {
			continue
		}
		pos, err := parsePosition(row[posIdx])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(row[titleIdx])
		artist := strings.TrimSpace(row[artistIdx])
		if title == "" || artist == "" {
			continue
		}
		out = append(out, MetaRow{Title: title, Artist: artist, Year: year, Position: pos})
	}
	return out, nil
}

// parsePosition tolerates "3" and "3.0" style cells.
func parsePosition(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// LyricsByPosition returns the lyric text stored for (year, position), or
// "" when no plausible lyric file exists there.
func LyricsByPosition(root string, year, position int) string {
	dir := filepath.Join(root, "bimmuda_dataset", strconv.Itoa(year), strconv.Itoa(position))
	matches, err := filepath.Glob(filepath.Join(dir, "*_lyrics.txt"))
	if err != nil {
		return ""
	}
	for _, p := range matches {
		data, err := os.ReadFile(p) //nolint:gosec // G304: path is under the configured dataset root
		if err != nil {
			continue
		}
		if txt := string(data); normalize.LooksLikeLyrics(txt) {
			return txt
		}
	}
	return ""
}

// LoadCandidatePool walks root for every .txt file that plausibly holds
// lyrics and derives a display label for each: the longest of the file
// stem, its parent and grandparent directory names, the first line of
// text, and their combinations.
func LoadCandidatePool(root string) ([]PoolFile, error) {
	var pool []PoolFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".txt") || strings.HasPrefix(d.Name(), "._") {
			return nil
		}

		data, err := os.ReadFile(path) //nolint:gosec // G304: path is under the configured dataset root
		if err != nil {
			return nil // unreadable file, skip
		}
		txt := string(data)
		if !normalize.LooksLikeLyrics(txt) {
			return nil
		}

		pool = append(pool, PoolFile{Label: deriveLabel(path, txt), Text: txt, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking dataset root: %w", err)
	}
	return pool, nil
}

func deriveLabel(path, txt string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parent := filepath.Base(filepath.Dir(path))
	grand := filepath.Base(filepath.Dir(filepath.Dir(path)))
	firstLine := ""
	if i := strings.IndexByte(txt, '\n'); i >= 0 {
		firstLine = strings.TrimSpace(txt[:i])
	} else {
		firstLine = strings.TrimSpace(txt)
	}

	best := stem
	for _, cand := range []string{stem, parent, grand, firstLine, parent + " " + stem, grand + " " + parent + " " + stem} {
		cand = strings.TrimSpace(cand)
		if len(cand) > len(best) {
			best = cand
		}
	}
	return best
}
