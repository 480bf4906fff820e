// Package stubs implements the manual lyric workflow for Top-5 rows that no
// automatic source could fill: the pipeline drops an empty stub file per
// missing row, a human pastes lyrics into some of them, and the merge pass
// matches the filled stubs back onto the rows by filename.
package stubs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/lyrics"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

const maxStubNameLen = 180

var (
	unsafeCharRe = regexp.MustCompile(`[\\/*?:"<>|]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)

	pipeLayoutRe = regexp.MustCompile(`^(\d{4})\s*\|\s*(.+?)\s*\|\s*(.+)$`)
	underscoreRe = regexp.MustCompile(`\s+_\s+`)
	dashRe       = regexp.MustCompile(`\s+-\s+`)
	yearRe       = regexp.MustCompile(`^\d{4}$`)
	runsOfUnders = regexp.MustCompile(`_+`)
)

// StubName builds the stub filename for a row: "YYYY | Artist | Title.txt"
// with filesystem-unsafe characters replaced, so the pipe separators come
// back as " _ " on disk.
func StubName(year int, artist, title string) string {
	raw := fmt.Sprintf("%d | %s | %s.txt", year, artist, title)
	raw = strings.NewReplacer("\n", " ", "\r", " ").Replace(raw)
	raw = unsafeCharRe.ReplaceAllString(raw, "_")
	raw = strings.TrimSpace(multiSpaceRe.ReplaceAllString(raw, " "))
	if len(raw) > maxStubNameLen {
		raw = raw[:maxStubNameLen]
	}
	return raw
}

// ParseStubName recovers (year, artist, title) from a stub filename. Three
// layouts are accepted, in order: "YYYY | Artist | Title", the sanitized
// "YYYY _ Artist _ Title", and "YYYY - Artist - Title". Extra separator
// segments fold into the title.
func ParseStubName(filename string) (year int, artist, title string, ok bool) {
	base := strings.TrimSpace(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))

	if m := pipeLayoutRe.FindStringSubmatch(base); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, cleanField(m[2]), cleanField(m[3]), true
	}
	for _, re := range []*regexp.Regexp{underscoreRe, dashRe} {
		parts := re.Split(base, -1)
		if len(parts) >= 3 && yearRe.MatchString(strings.TrimSpace(parts[0])) {
			y, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
			return y, cleanField(parts[1]), cleanField(strings.Join(parts[2:], " ")), true
		}
	}
	return 0, "", "", false
}

// cleanField treats runs of underscores inside a field as spaces.
func cleanField(s string) string {
	s = runsOfUnders.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// Generate writes an empty stub file into dir for every Top-5 row in the
// year window whose lyrics are still empty. Existing files are left alone so
// half-filled stubs survive a re-run. Returns how many files were created.
func Generate(dir string, rows []lyrics.Row, yearStart, yearEnd int) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating stubs directory: %w", err)
	}
	created := 0
	for _, r := range rows {
		if r.Rank > 5 || r.Year < yearStart || r.Year > yearEnd || r.Lyrics != "" {
			continue
		}
		path := filepath.Join(dir, StubName(r.Year, r.Artist, r.Title))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return created, fmt.Errorf("creating stub: %w", err)
		}
		created++
	}
	return created, nil
}

// Merger matches filled stub files back onto still-empty Top-5 rows.
type Merger struct {
	norm      *normalize.Normalizer
	threshold int
	yearStart int
	yearEnd   int
	logger    *slog.Logger
}

// NewMerger creates a merge pass for the given year window.
func NewMerger(norm *normalize.Normalizer, threshold, yearStart, yearEnd int, logger *slog.Logger) *Merger {
	return &Merger{norm: norm, threshold: threshold, yearStart: yearStart, yearEnd: yearEnd, logger: logger}
}

// Merge scans dir for non-empty stub files and fills the best-matching empty
// row in place. Each stub is scored against the same-year empty rows first;
// only when that year has no empty rows does it fall back to the whole empty
// set. A row, once filled, is no longer a candidate for later stubs.
func (m *Merger) Merge(dir string, rows []lyrics.Row) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return 0, fmt.Errorf("listing stubs: %w", err)
	}

	// Candidate set: indexes of still-empty Top-5 rows in the window.
	empty := make(map[int]bool)
	for i, r := range rows {
		if r.Rank <= 5 && r.Year >= m.yearStart && r.Year <= m.yearEnd && r.Lyrics == "" {
			empty[i] = true
		}
	}

	filled := 0
	for _, p := range paths {
		year, artist, title, ok := ParseStubName(p)
		if !ok {
			m.logger.Warn("skipping stub with unparseable name", slog.String("file", filepath.Base(p)))
			continue
		}
		data, err := os.ReadFile(p) //nolint:gosec // G304: p is under the configured stubs dir
		if err != nil {
			m.logger.Warn("skipping unreadable stub", slog.String("file", filepath.Base(p)), slog.String("error", err.Error()))
			continue
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			continue
		}

		stubKey := m.norm.ComboKey(title, artist)

		pool := make([]int, 0, len(empty))
		for i := range empty {
			if rows[i].Year == year {
				pool = append(pool, i)
			}
		}
		scope := "same-year"
		if len(pool) == 0 {
			for i := range empty {
				pool = append(pool, i)
			}
			scope = "global"
		}
		if len(pool) == 0 {
			break
		}

		bestIdx, bestScore := -1, -1
		for _, i := range pool {
			if sc := linkage.TokenSetRatio(stubKey, m.norm.ComboKey(rows[i].Title, rows[i].Artist)); sc > bestScore {
				bestScore, bestIdx = sc, i
			}
		}
		if bestIdx < 0 || bestScore < m.threshold {
			m.logger.Warn("no acceptable row for stub",
				slog.String("file", filepath.Base(p)),
				slog.String("scope", scope),
				slog.Int("best_score", bestScore))
			continue
		}

		rows[bestIdx].Lyrics = text
		delete(empty, bestIdx)
		filled++
		m.logger.Info("stub merged",
			slog.String("file", filepath.Base(p)),
			slog.String("scope", scope),
			slog.Int("score", bestScore),
			slog.Int("year", rows[bestIdx].Year),
			slog.Int("rank", rows[bestIdx].Rank))
	}
	return filled, nil
}
