package textmetrics

import (
	"math"
	"strings"
	"testing"
)

func TestComputeBasicCounts(t *testing.T) {
	a := NewAnalyzer()
	lyr := "I love you baby\nI love you baby\nTrust in me when I say\n"
	m := a.Compute(lyr)

	if m.Lines != 3 {
		t.Errorf("Lines = %d, want 3", m.Lines)
	}
	if m.Tokens != 14 {
		t.Errorf("Tokens = %d, want 14", m.Tokens)
	}
	// 9 distinct tokens of 14: i, love, you, baby, trust, in, me, when, say.
	want := 9.0 / 14.0
	if math.Abs(m.TTR-want) > 1e-9 {
		t.Errorf("TTR = %v, want %v", m.TTR, want)
	}
	// Two of three lines identical.
	if math.Abs(m.Repetition-1.0/3.0) > 1e-9 {
		t.Errorf("Repetition = %v, want 1/3", m.Repetition)
	}
	if m.Entropy <= 0 || m.HHI <= 0 || m.MaxP <= 0 {
		t.Errorf("distribution metrics not computed: %+v", m)
	}
	// "i" appears three times, the most of any token.
	if math.Abs(m.MaxP-3.0/14.0) > 1e-9 {
		t.Errorf("MaxP = %v, want 3/14", m.MaxP)
	}
}

func TestComputeEmpty(t *testing.T) {
	a := NewAnalyzer()
	if m := a.Compute(""); m != (Metrics{}) {
		t.Errorf("Compute(\"\") = %+v, want zero", m)
	}
	if m := a.Compute("   \n\n  "); m != (Metrics{}) {
		t.Errorf("Compute(blank) = %+v, want zero", m)
	}
}

func TestCompressibilityOrdering(t *testing.T) {
	a := NewAnalyzer()
	repetitive := a.Compute(strings.Repeat("na na na na hey hey hey goodbye\n", 40))
	varied := a.Compute("The quick brown fox jumps over a lazy dog\n" +
		"Seventy violins shimmer beneath October rain\n" +
		"Cartography of midnight gasoline and chrome\n" +
		"Whispered ultimatums dissolve against the tide\n" +
		"Borrowed thunder rattles every fire escape\n")

	if repetitive.Compressibility <= 0 || varied.Compressibility <= 0 {
		t.Fatalf("compressibility not computed: %v %v", repetitive.Compressibility, varied.Compressibility)
	}
	if repetitive.Compressibility >= varied.Compressibility {
		t.Errorf("repetitive (%v) should compress better than varied (%v)",
			repetitive.Compressibility, varied.Compressibility)
	}
}

func TestSentimentDirection(t *testing.T) {
	a := NewAnalyzer()
	happy := a.Compute("I love this wonderful beautiful amazing day\nEverything is great and I am so happy\nJoy joy joy wonderful joy\nBest feeling ever truly\nSmiles all around us\n")
	sad := a.Compute("I hate this terrible horrible awful day\nEverything is ruined and I am so miserable\nPain pain pain endless pain\nWorst feeling ever truly\nTears all around us\n")

	if happy.Sentiment <= 0 {
		t.Errorf("happy sentiment = %v, want > 0", happy.Sentiment)
	}
	if sad.Sentiment >= 0 {
		t.Errorf("sad sentiment = %v, want < 0", sad.Sentiment)
	}
}

func TestFleschKincaidOrdering(t *testing.T) {
	a := NewAnalyzer()
	simple := a.Compute("I am sad.\nYou are sad.\nWe all cry.\nIt is bad.\nSo it goes.\n")
	complex := a.Compute("Extraordinary circumstances necessitate comprehensive reconsideration of fundamental assumptions.\nInstitutional accountability demands unprecedented transparency throughout contemporary governance.\nPhilosophical deliberation illuminates multidimensional sociocultural phenomena.\nIncontrovertible documentation substantiates systematic organizational transformation.\nRevolutionary methodology facilitates interdisciplinary collaboration internationally.\n")

	if simple.FKGrade >= complex.FKGrade {
		t.Errorf("simple grade (%v) should be below complex grade (%v)", simple.FKGrade, complex.FKGrade)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"baby", 2},
		{"beautiful", 3},
		{"rhythm", 1},
		{"table", 2},
		{"love", 1},
	}
	for _, tt := range tests {
		if got := countSyllables(tt.word); got != tt.want {
			t.Errorf("countSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}
