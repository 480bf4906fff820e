package bow

import "math"

// Stats are the distributional summaries of one track's bag of words.
type Stats struct {
	Total   int     // sum of raw counts
	TTR     float64 // distinct tokens / total
	Entropy float64 // Shannon entropy of the token distribution, natural log
	HHI     float64 // Herfindahl-Hirschman concentration, sum of p^2
	MaxP    float64 // share of the single most frequent token
}

// ComputeStats summarizes a payload. Non-positive counts are ignored; an
// empty or all-zero payload yields the zero Stats.
func ComputeStats(pairs []Pair) Stats {
	total := 0
	counts := make([]int, 0, len(pairs))
	for _, p := range pairs {
		if p.Count > 0 {
			counts = append(counts, p.Count)
			total += p.Count
		}
	}
	if total == 0 {
		return Stats{}
	}

	var entropy, hhi, maxP float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log(p+1e-12)
		hhi += p * p
		if p > maxP {
			maxP = p
		}
	}
	return Stats{
		Total:   total,
		TTR:     float64(len(counts)) / float64(total),
		Entropy: entropy,
		HHI:     hhi,
		MaxP:    maxP,
	}
}
