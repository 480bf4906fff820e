package bow

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Match is one row of the 779k matches file: the two track ids and the
// musiXmatch-side artist/title credit.
type Match struct {
	MSDID  string
	MXMID  string
	Artist string
	Title  string
}

var sepRe = regexp.MustCompile(`\s*<SEP>\s*`)

// candidate delimiters, tried in this order; <SEP> wins ties by coming first.
var delimiters = []string{"<SEP>", "\t", "|", ","}

const sniffSample = 200

// LoadMatches parses the matches file. The delimiter is not fixed across
// mirrors of the file, so it is sniffed: the candidate producing the highest
// median column count over the first lines wins. Rows with fewer than four
// columns are skipped; artist and title are the last two columns.
func LoadMatches(path string) ([]Match, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening matches file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning matches file: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("matches file %s is empty or all comments", path)
	}

	delim := sniffDelimiter(lines)

	var out []Match
	for _, line := range lines {
		parts := splitRow(line, delim)
		if len(parts) < 4 {
			continue
		}
		out = append(out, Match{
			MSDID:  parts[0],
			MXMID:  parts[1],
			Artist: parts[len(parts)-2],
			Title:  parts[len(parts)-1],
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no rows parsed from %s with delimiter %q", path, delim)
	}
	return out, nil
}

func sniffDelimiter(lines []string) string {
	sample := lines
	if len(sample) > sniffSample {
		sample = sample[:sniffSample]
	}

	best, bestMedian := delimiters[0], 0
	for _, d := range delimiters {
		counts := make([]int, len(sample))
		for i, ln := range sample {
			counts[i] = len(splitRow(ln, d))
		}
		sort.Ints(counts)
		if median := counts[len(counts)/2]; median > bestMedian {
			best, bestMedian = d, median
		}
	}
	return best
}

func splitRow(line, delim string) []string {
	var parts []string
	if delim == "<SEP>" {
		parts = sepRe.Split(line, -1)
	} else {
		parts = strings.Split(line, delim)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
