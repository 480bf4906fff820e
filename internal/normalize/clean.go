package normalize

import (
	"html"
	"regexp"
	"strings"
)

var (
	bracketTagRe = regexp.MustCompile(`\[[^\]]{1,40}\]`)
	nonASCIIRe   = regexp.MustCompile(`[^\x00-\x7F]+`)
	multiBlankRe = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
)

// CleanLyrics strips scraped lyric text down to the sung words: HTML
// entities decoded, stage annotations like [Chorus] removed, exotic spaces
// and non-ASCII runs replaced, scraper boilerplate lines dropped, blank
// runs collapsed.
func CleanLyrics(raw string) string {
	s := html.UnescapeString(raw)
	s = bracketTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\r", "\n")
	for _, sp := range []string{"\u2005", "\u2009", "\u00a0"} {
		s = strings.ReplaceAll(s, sp, " ")
	}
	s = nonASCIIRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		low := strings.ToLower(strings.TrimSpace(ln))
		if low != "" && (strings.Contains(low, "you might also like") || strings.HasSuffix(low, "embed")) {
			continue
		}
		kept = append(kept, ln)
	}
	s = strings.Join(kept, "\n")

	s = multiBlankRe.ReplaceAllString(s, "\n\n")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// LooksLikeLyrics reports whether txt plausibly contains song lyrics rather
// than liner notes or rights boilerplate: long enough, several lines, and no
// copyright notice near the top.
func LooksLikeLyrics(txt string) bool {
	if len(txt) < 80 {
		return false
	}
	lines := strings.Split(txt, "\n")
	if len(lines) < 5 {
		return false
	}
	head := lines
	if len(head) > 15 {
		head = head[:15]
	}
	for _, ln := range head {
		low := strings.ToLower(ln)
		if strings.Contains(low, "copyright") || strings.Contains(low, "all rights") {
			return false
		}
	}
	return true
}

// RepetitionRatio returns 1 - unique/total over the non-blank lines of text,
// case-folded. Empty text scores 0.
func RepetitionRatio(text string) float64 {
	seen := make(map[string]struct{})
	total := 0
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.ToLower(strings.TrimSpace(ln))
		if ln == "" {
			continue
		}
		total++
		seen[ln] = struct{}{}
	}
	if total == 0 {
		return 0
	}
	return 1 - float64(len(seen))/float64(total)
}
