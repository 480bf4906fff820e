package bimmuda

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/filesystem"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/lyrics"
)

// ManualKey is the key a hand-curated lyric entry is stored under:
// "YYYY | Artist | Title".
func ManualKey(year int, artist, title string) string {
	return fmt.Sprintf("%d | %s | %s", year, artist, title)
}

// LoadManual reads the hand-curated lyrics JSON. A missing file is not an
// error; it just means nothing has been curated yet.
func LoadManual(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manual lyrics: %w", err)
	}
	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding manual lyrics: %w", err)
	}
	return out, nil
}

// ApplyManual fills still-empty rows from the curated map and returns how
// many it filled. Rows that already carry lyrics are never overwritten.
func ApplyManual(rows []lyrics.Row, manual map[string]string) int {
	filled := 0
	for i := range rows {
		if rows[i].Lyrics != "" {
			continue
		}
		if txt, ok := manual[ManualKey(rows[i].Year, rows[i].Artist, rows[i].Title)]; ok && strings.TrimSpace(txt) != "" {
			rows[i].Lyrics = txt
			filled++
		}
	}
	return filled
}

// WriteManualTemplate writes a JSON skeleton at path with an empty-string
// entry for every row still missing lyrics, preserving any values already
// curated. encoding/json sorts the keys, so diffs stay readable.
func WriteManualTemplate(path string, rows []lyrics.Row, existing map[string]string) error {
	merged := make(map[string]string, len(existing))
	for k, v := range existing {
		merged[k] = v
	}
	for _, r := range rows {
		if r.Lyrics != "" {
			continue
		}
		key := ManualKey(r.Year, r.Artist, r.Title)
		if _, ok := merged[key]; !ok {
			merged[key] = ""
		}
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manual template: %w", err)
	}
	return filesystem.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
