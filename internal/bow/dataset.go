// Package bow loads the musiXmatch bag-of-words dataset and joins year-end
// chart rows against it through the linkage pipeline.
package bow

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Pair is one (vocabulary index, raw count) entry of a track's bag of words.
// Indexes are 1-based into the vocabulary, as shipped.
type Pair struct {
	Index int
	Count int
}

// Dataset is the merged train+test bag-of-words corpus keyed by track id.
// Ids may be MSD ("TR…") or musiXmatch ids depending on the export.
type Dataset struct {
	Vocab  []string
	Tracks map[string][]Pair
}

// Lookup resolves a track payload, preferring the MSD id and falling back to
// the musiXmatch id.
func (d *Dataset) Lookup(msdID, mxmID string) ([]Pair, bool) {
	if pairs, ok := d.Tracks[msdID]; ok {
		return pairs, true
	}
	pairs, ok := d.Tracks[mxmID]
	return pairs, ok
}

// LoadDataset loads the train file and, when testPath is non-empty, merges
// the test file over it. Duplicate track ids resolve last-write-wins.
func LoadDataset(trainPath, testPath string) (*Dataset, error) {
	vocab, tracks, err := loadOne(trainPath)
	if err != nil {
		return nil, err
	}
	if testPath != "" {
		if _, err := os.Stat(testPath); err == nil {
			_, more, err := loadOne(testPath)
			if err != nil {
				return nil, err
			}
			for id, pairs := range more {
				tracks[id] = pairs
			}
		}
	}
	return &Dataset{Vocab: vocab, Tracks: tracks}, nil
}

// loadOne parses one dataset file: the vocabulary on the first line starting
// with '#' (comma-separated, entries possibly "idx:word"), then one track per
// line as "tid,idx:cnt,idx:cnt,…". '%' lines are skipped.
func loadOne(path string) ([]string, map[string][]Pair, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, nil, fmt.Errorf("opening bow dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var vocab []string
	tracks := make(map[string][]Pair)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if vocab == nil {
				for _, p := range strings.Split(strings.TrimSpace(line[1:]), ",") {
					p = strings.TrimSpace(p)
					if p == "" {
						continue
					}
					if i := strings.Index(p, ":"); i >= 0 {
						p = p[i+1:]
					}
					vocab = append(vocab, p)
				}
			}
			continue
		}

		tid, rest, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		var pairs []Pair
		for _, seg := range strings.Split(rest, ",") {
			idxStr, cntStr, ok := strings.Cut(seg, ":")
			if !ok {
				continue
			}
			idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
			if err != nil {
				continue
			}
			cnt, err := strconv.Atoi(strings.TrimSpace(cntStr))
			if err != nil {
				continue
			}
			pairs = append(pairs, Pair{Index: idx, Count: cnt})
		}
		if len(pairs) > 0 {
			tracks[tid] = pairs
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanning bow dataset: %w", err)
	}
	if len(tracks) == 0 {
		return nil, nil, fmt.Errorf("no tracks parsed from %s: is it the unzipped txt?", path)
	}
	return vocab, tracks, nil
}
