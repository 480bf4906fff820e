package linkage

// DefaultCandidateCap bounds the candidate set handed to the matcher when
// blocking falls back to a union or prefix scan.
const DefaultCandidateCap = 3000

// Index groups reference records by two cheap blocking keys so similarity
// scoring never runs against the full pool. Build it once per run; it is
// read-only afterwards and safe for concurrent lookups.
type Index struct {
	records          []*Record
	byArtistInitial  map[string][]int
	byTitleFirstWord map[string][]int
	cap              int
}

// BuildIndex constructs the blocking index over records. A cap <= 0 uses
// DefaultCandidateCap.
func BuildIndex(records []*Record, cap int) *Index {
	if cap <= 0 {
		cap = DefaultCandidateCap
	}
	ix := &Index{
		records:          records,
		byArtistInitial:  make(map[string][]int),
		byTitleFirstWord: make(map[string][]int),
		cap:              cap,
	}
	for i, r := range records {
		ix.byArtistInitial[r.ArtistInitial] = append(ix.byArtistInitial[r.ArtistInitial], i)
		ix.byTitleFirstWord[r.TitleFirstWord] = append(ix.byTitleFirstWord[r.TitleFirstWord], i)
	}
	return ix
}

// Candidates returns the blocked candidate subset for a query's blocking
// keys. Three tiers, in order:
//
//  1. intersection of the artist-initial and title-first-word lists;
//  2. if empty, their union truncated to the cap;
//  3. if still empty, an arbitrary prefix of the full pool up to the cap.
//
// The result is empty only when the pool itself is empty. The union
// fallback deliberately trades precision for recall: a query whose two keys
// never co-occur still gets scored against everything either key reaches.
func (ix *Index) Candidates(artistInitial, titleFirstWord string) []*Record {
	a := ix.byArtistInitial[artistInitial]
	t := ix.byTitleFirstWord[titleFirstWord]

	inTitle := make(map[int]struct{}, len(t))
	for _, i := range t {
		inTitle[i] = struct{}{}
	}

	var picked []int
	for _, i := range a {
		if _, ok := inTitle[i]; ok {
			picked = append(picked, i)
		}
	}

	if len(picked) == 0 {
		seen := make(map[int]struct{}, len(a)+len(t))
		for _, list := range [][]int{a, t} {
			for _, i := range list {
				if _, ok := seen[i]; ok {
					continue
				}
				seen[i] = struct{}{}
				picked = append(picked, i)
				if len(picked) >= ix.cap {
					break
				}
			}
			if len(picked) >= ix.cap {
				break
			}
		}
	}

	if len(picked) == 0 {
		n := len(ix.records)
		if n > ix.cap {
			n = ix.cap
		}
		return ix.records[:n]
	}

	out := make([]*Record, len(picked))
	for j, i := range picked {
		out[j] = ix.records[i]
	}
	return out
}

// Len returns the number of records in the index.
func (ix *Index) Len() int { return len(ix.records) }
