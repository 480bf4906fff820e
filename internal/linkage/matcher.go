package linkage

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// TokenSetRatio scores the similarity of two strings on a 0-100 scale,
// insensitive to word order and duplicate tokens. Both inputs are expected
// to be normalized already.
//
// The score follows the classic token-set construction: tokenize both
// strings into sorted unique sets, build the sorted intersection string and
// the two intersection-plus-remainder strings, and take the best pairwise
// similarity ratio among them. A string whose tokens are a subset of the
// other's therefore scores 100.
func TokenSetRatio(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for _, tok := range sortedTokens(setA) {
		if _, ok := setB[tok]; ok {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for _, tok := range sortedTokens(setB) {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	best := ratio(t1, t2)
	if t0 != "" {
		if r := ratio(t0, t1); r > best {
			best = r
		}
		if r := ratio(t0, t2); r > best {
			best = r
		}
	}
	return best
}

// ratio is a normalized Levenshtein similarity on a 0-100 scale.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	score := int(sim*100 + 0.5)
	if score > 100 {
		score = 100
	}
	return score
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Match scores every candidate's combo key against the query key and returns
// the best record and its score. Ties break in favor of the first candidate
// encountered; across unordered candidate sets this is an accepted
// nondeterminism, not a bug. An empty candidate slice yields (nil, -1).
//
// The caller applies any acceptance threshold: Match always reports its best
// finding so near-misses stay auditable.
func Match(queryKey string, candidates []*Record) (*Record, int) {
	var best *Record
	score := -1
	for _, c := range candidates {
		if sc := TokenSetRatio(queryKey, c.ComboKey); sc > score {
			score = sc
			best = c
		}
	}
	return best, score
}
