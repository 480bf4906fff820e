package linkage

import (
	"fmt"
	"log/slog"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

// Query is one chart row to be linked against the reference pool.
type Query struct {
	Year   int
	Rank   int
	Title  string
	Artist string
}

// Provenance records which matching stage produced a decision. It governs
// reporting only, never behavior.
type Provenance string

// Provenance values. ProvenanceNone is the empty string so unmatched rows
// emit an empty source label downstream.
const (
	ProvenanceExactKey    Provenance = "exact_key"
	ProvenanceSameYear    Provenance = "same_year_fuzzy"
	ProvenanceGlobalFuzzy Provenance = "global_fallback_fuzzy"
	ProvenanceNone        Provenance = ""
)

// Decision is the immutable outcome of linking one query. A score of -1
// means no candidate was ever considered; it always pairs with
// ProvenanceNone and an empty MatchedID.
type Decision struct {
	Query      Query
	MatchedID  string
	Score      int
	Provenance Provenance
}

// Matched reports whether the decision carries an accepted match.
func (d Decision) Matched() bool { return d.Provenance != ProvenanceNone }

// Config holds the per-run linkage parameters. The threshold is global to a
// run, never per-record.
type Config struct {
	Threshold    int // minimum accepted fuzzy score, 0-100
	CandidateCap int // blocking fallback cap; 0 = DefaultCandidateCap
}

// Linker runs the staged linkage state machine over a fixed reference pool.
// The pool snapshot and its derived indexes are built once and read-only
// afterwards.
type Linker struct {
	norm    *normalize.Normalizer
	cfg     Config
	logger  *slog.Logger
	pool    []*Record
	byExact map[[2]int]*Record
	byYear  map[int][]*Record
	index   *Index
}

// NewLinker builds a Linker over the given reference pool. Exact-key and
// same-year lookups are only available for metadata records; duplicate
// (year, position) keys resolve last-write-wins, matching the loader
// contract.
func NewLinker(norm *normalize.Normalizer, pool []*Record, cfg Config, logger *slog.Logger) *Linker {
	l := &Linker{
		norm:    norm,
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		byExact: make(map[[2]int]*Record),
		byYear:  make(map[int][]*Record),
		index:   BuildIndex(pool, cfg.CandidateCap),
	}
	for _, r := range pool {
		if r.Kind != KindMetadata {
			continue
		}
		l.byExact[[2]int{r.Year, r.Position}] = r
		l.byYear[r.Year] = append(l.byYear[r.Year], r)
	}
	return l
}

// Link runs the stages for one query, strictly ordered and short-circuiting
// on the first accepted match:
//
//  1. exact (year, position) key — accepted regardless of fuzzy score, which
//     is still computed for the audit trail;
//  2. fuzzy over the query's same-year partition;
//  3. fuzzy over the blocked global pool.
//
// Each stage runs at most once. If nothing clears the threshold the decision
// is unmatched, carrying the last stage's best-effort score.
func (l *Linker) Link(q Query) Decision {
	queryKey := l.norm.ComboKey(q.Title, q.Artist)

	if rec, ok := l.byExact[[2]int{q.Year, q.Rank}]; ok {
		return Decision{
			Query:      q,
			MatchedID:  rec.ID,
			Score:      TokenSetRatio(queryKey, rec.ComboKey),
			Provenance: ProvenanceExactKey,
		}
	}

	lastScore := -1
	if partition := l.byYear[q.Year]; len(partition) > 0 {
		if best, score := Match(queryKey, partition); best != nil {
			lastScore = score
			if score >= l.cfg.Threshold {
				return Decision{Query: q, MatchedID: best.ID, Score: score, Provenance: ProvenanceSameYear}
			}
		}
	}

	candidates := l.index.Candidates(l.norm.ArtistInitial(q.Artist), l.norm.TitleFirstWord(q.Title))
	if best, score := Match(queryKey, candidates); best != nil {
		lastScore = score
		if score >= l.cfg.Threshold {
			return Decision{Query: q, MatchedID: best.ID, Score: score, Provenance: ProvenanceGlobalFuzzy}
		}
	}

	return Decision{Query: q, Score: lastScore, Provenance: ProvenanceNone}
}

// LinkAll links every query, containing any single query's failure to that
// query: a panic inside one linkage degrades it to unmatched and the batch
// continues. Exactly one decision is returned per query, unmatched ones
// included.
func (l *Linker) LinkAll(queries []Query) []Decision {
	decisions := make([]Decision, 0, len(queries))
	for _, q := range queries {
		decisions = append(decisions, l.linkSafe(q))
	}
	return decisions
}

func (l *Linker) linkSafe(q Query) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			if l.logger != nil {
				l.logger.Error("linkage failed for query",
					slog.Int("year", q.Year),
					slog.Int("rank", q.Rank),
					slog.String("title", q.Title),
					slog.String("error", fmt.Sprint(r)))
			}
			d = Decision{Query: q, Score: -1, Provenance: ProvenanceNone}
		}
	}()
	return l.Link(q)
}
