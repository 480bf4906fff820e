// Package textmetrics computes per-track lexical, readability and sentiment
// summaries over cleaned lyric text.
package textmetrics

import (
	"bytes"
	"compress/gzip"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

var (
	tokenRe    = regexp.MustCompile(`[a-z]+'?[a-z]*`)
	sentenceRe = regexp.MustCompile(`[.!?\n]+`)
	vowelRe    = regexp.MustCompile(`[aeiouy]+`)
)

// Metrics summarizes one track's lyrics. A track with no usable tokens
// yields the zero Metrics.
type Metrics struct {
	Lines           int     // non-blank lines after cleaning
	Tokens          int     // word tokens after cleaning
	TTR             float64 // distinct tokens / total
	Repetition      float64 // 1 - unique lines / total lines
	Compressibility float64 // gzip bytes / raw bytes, lower = more repetitive
	Entropy         float64 // Shannon entropy of the token distribution, natural log
	HHI             float64 // sum of squared token shares
	MaxP            float64 // share of the most frequent token
	Sentiment       float64 // mean VADER compound over lines
	FKGrade         float64 // Flesch-Kincaid grade level
}

// Analyzer computes metrics. It owns the sentiment model, which is expensive
// to build, so construct one and reuse it across tracks.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer builds an analyzer with the default VADER lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Compute cleans the raw lyrics and derives every metric from the result.
func (a *Analyzer) Compute(raw string) Metrics {
	cleaned := normalize.CleanLyrics(raw)
	if strings.TrimSpace(cleaned) == "" {
		return Metrics{}
	}

	lower := strings.ToLower(cleaned)
	tokens := tokenRe.FindAllString(lower, -1)

	m := Metrics{
		Lines:           countLines(cleaned),
		Tokens:          len(tokens),
		Repetition:      normalize.RepetitionRatio(cleaned),
		Compressibility: compressibility(cleaned),
		Sentiment:       a.meanSentiment(cleaned),
	}
	if len(tokens) == 0 {
		return m
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	total := float64(len(tokens))
	for _, c := range counts {
		p := float64(c) / total
		m.Entropy -= p * math.Log(p+1e-12)
		m.HHI += p * p
		if p > m.MaxP {
			m.MaxP = p
		}
	}
	m.TTR = float64(len(counts)) / total
	m.FKGrade = fleschKincaid(lower, tokens)
	return m
}

func countLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// compressibility is the gzip-compressed size relative to the raw size.
// Highly repetitive lyrics compress well and score low.
func compressibility(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0
	}
	if _, err := w.Write([]byte(s)); err != nil {
		return 0
	}
	if err := w.Close(); err != nil {
		return 0
	}
	return float64(buf.Len()) / float64(len(s))
}

func (a *Analyzer) meanSentiment(cleaned string) float64 {
	sum, n := 0.0, 0
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sum += a.vader.PolarityScores(line).Compound
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// fleschKincaid computes the grade level 0.39*(words/sentences) +
// 11.8*(syllables/word) - 15.59 with a vowel-group syllable heuristic.
func fleschKincaid(lower string, tokens []string) float64 {
	sentences := 0
	for _, s := range sentenceRe.Split(lower, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, tok := range tokens {
		syllables += countSyllables(tok)
	}

	words := float64(len(tokens))
	return 0.39*(words/float64(sentences)) + 11.8*(float64(syllables)/words) - 15.59
}

// countSyllables approximates syllables as vowel groups, discounting a
// trailing silent e. Every word counts at least one.
func countSyllables(word string) int {
	groups := vowelRe.FindAllString(word, -1)
	n := len(groups)
	if n > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}
