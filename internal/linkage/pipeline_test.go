package linkage

import (
	"testing"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

func TestLinkExactKeyShortCircuit(t *testing.T) {
	n := normalize.New(nil)
	// Deliberately dissimilar strings: exact (year, position) wins anyway.
	pool := []*Record{
		NewMetadataRecord(n, "M1", 1999, 3, "Completely Different Title", "Someone Else"),
	}
	l := NewLinker(n, pool, Config{Threshold: 76}, nil)

	d := l.Link(Query{Year: 1999, Rank: 3, Title: "Believe", Artist: "Cher"})
	if d.Provenance != ProvenanceExactKey {
		t.Fatalf("Provenance = %q, want %q", d.Provenance, ProvenanceExactKey)
	}
	if d.MatchedID != "M1" {
		t.Errorf("MatchedID = %q, want M1", d.MatchedID)
	}
	// Score is computed for audit even though it played no part in acceptance.
	if d.Score < 0 || d.Score > 100 {
		t.Errorf("audit score = %d, want within [0, 100]", d.Score)
	}
}

func TestLinkSameYearFuzzy(t *testing.T) {
	n := normalize.New(normalize.DefaultAliases())
	pool := []*Record{
		NewMetadataRecord(n, "M1", 1986, 1, "Livin' On A Prayer", "Bon Jovi"),
		NewMetadataRecord(n, "M2", 1986, 2, "Walk Like An Egyptian", "The Bangles"),
	}
	l := NewLinker(n, pool, Config{Threshold: 70}, nil)

	// Rank 7 has no exact key; the same-year fuzzy stage should find M1.
	d := l.Link(Query{Year: 1986, Rank: 7, Title: "Livin On A Prayer", Artist: "Bon Jovi feat. Richie Sambora"})
	if d.Provenance != ProvenanceSameYear {
		t.Fatalf("Provenance = %q, want %q", d.Provenance, ProvenanceSameYear)
	}
	if d.MatchedID != "M1" {
		t.Errorf("MatchedID = %q, want M1", d.MatchedID)
	}
	if d.Score < 90 {
		t.Errorf("Score = %d, want >= 90", d.Score)
	}
}

func TestLinkGlobalFallback(t *testing.T) {
	n := normalize.New(normalize.DefaultAliases())
	// Bag-of-words pool: no year partition, no exact key, so matching goes
	// straight through the blocked global stage.
	pool := []*Record{
		NewBagOfWordsRecord(n, "A1", "livin on a prayer", "bon jovi"),
	}
	l := NewLinker(n, pool, Config{Threshold: 70}, nil)

	d := l.Link(Query{Year: 1986, Rank: 7, Title: "Livin' On A Prayer", Artist: "Bon Jovi (feat. Richie Sambora)"})
	if d.Provenance != ProvenanceGlobalFuzzy {
		t.Fatalf("Provenance = %q, want %q", d.Provenance, ProvenanceGlobalFuzzy)
	}
	if d.MatchedID != "A1" {
		t.Errorf("MatchedID = %q, want A1", d.MatchedID)
	}
	if d.Score < 90 {
		t.Errorf("Score = %d, want >= 90", d.Score)
	}
}

func TestLinkNoMatch(t *testing.T) {
	n := normalize.New(nil)
	pool := []*Record{
		NewBagOfWordsRecord(n, "B1", "unrelated song", "nobody"),
	}
	l := NewLinker(n, pool, Config{Threshold: 70}, nil)

	d := l.Link(Query{Year: 1986, Rank: 7, Title: "Livin' On A Prayer", Artist: "Bon Jovi"})
	if d.Provenance != ProvenanceNone {
		t.Fatalf("Provenance = %q, want none", d.Provenance)
	}
	if d.MatchedID != "" {
		t.Errorf("MatchedID = %q, want empty", d.MatchedID)
	}
	// The best-effort score from the last stage is kept for the audit trail.
	if d.Score < 0 || d.Score >= 70 {
		t.Errorf("Score = %d, want below threshold and non-negative", d.Score)
	}
	if d.Matched() {
		t.Error("Matched() = true for unmatched decision")
	}
}

func TestLinkThresholdBoundary(t *testing.T) {
	n := normalize.New(nil)
	pool := []*Record{
		NewBagOfWordsRecord(n, "A1", "Livin On A Prayer", "Bon Jovi"),
	}
	q := Query{Year: 1986, Rank: 7, Title: "Livin' On A Prayer", Artist: "Bon Jovi"}
	score := TokenSetRatio(n.ComboKey(q.Title, q.Artist), pool[0].ComboKey)
	if score <= 0 || score >= 100 {
		t.Fatalf("fixture score = %d, want a partial match", score)
	}

	// Exactly at threshold: accepted.
	at := NewLinker(n, pool, Config{Threshold: score}, nil)
	if d := at.Link(q); !d.Matched() {
		t.Errorf("score %d at threshold %d: unmatched, want matched", score, score)
	}

	// One point above the candidate's score: rejected.
	above := NewLinker(n, pool, Config{Threshold: score + 1}, nil)
	if d := above.Link(q); d.Matched() {
		t.Errorf("score %d below threshold %d: matched, want unmatched", score, score+1)
	}
}

func TestLinkEmptyPool(t *testing.T) {
	n := normalize.New(nil)
	l := NewLinker(n, nil, Config{Threshold: 70}, nil)

	d := l.Link(Query{Year: 1999, Rank: 1, Title: "Believe", Artist: "Cher"})
	if d.Provenance != ProvenanceNone {
		t.Errorf("Provenance = %q, want none", d.Provenance)
	}
	if d.Score != -1 {
		t.Errorf("Score = %d, want -1 when no candidate was considered", d.Score)
	}
}

func TestLinkAllContainsFailure(t *testing.T) {
	// A nil normalizer makes every Link panic; LinkAll must degrade each
	// query to unmatched instead of aborting the batch.
	l := NewLinker(nil, nil, Config{Threshold: 70}, nil)

	queries := []Query{
		{Year: 1999, Rank: 1, Title: "Believe", Artist: "Cher"},
		{Year: 1999, Rank: 2, Title: "No Scrubs", Artist: "TLC"},
	}
	decisions := l.LinkAll(queries)
	if len(decisions) != len(queries) {
		t.Fatalf("len(decisions) = %d, want %d", len(decisions), len(queries))
	}
	for i, d := range decisions {
		if d.Provenance != ProvenanceNone || d.Score != -1 {
			t.Errorf("decision %d = %+v, want unmatched with score -1", i, d)
		}
	}
}

func TestLinkDeterministic(t *testing.T) {
	n := normalize.New(normalize.DefaultAliases())
	pool := []*Record{
		NewMetadataRecord(n, "M1", 1986, 1, "Livin' On A Prayer", "Bon Jovi"),
		NewBagOfWordsRecord(n, "A1", "Bad Medicine", "Bon Jovi"),
	}
	l := NewLinker(n, pool, Config{Threshold: 70}, nil)
	q := Query{Year: 1986, Rank: 9, Title: "Livin On A Prayer", Artist: "Bon Jovi"}

	first := l.Link(q)
	for i := 0; i < 5; i++ {
		if got := l.Link(q); got != first {
			t.Fatalf("run %d: decision %+v != %+v", i, got, first)
		}
	}
}
