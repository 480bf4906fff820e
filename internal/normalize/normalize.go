// Package normalize maps free-text song titles and artist credits to canonical
// comparable forms. Every matching decision downstream is made over keys
// produced here, so all functions are deterministic and total: garbage input
// yields an empty or minimal string, never an error.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ampersandRe   = regexp.MustCompile(`&`)
	connectiveRe  = regexp.MustCompile(`\b(feat\.?|featuring|with)\b`)
	parentheticRe = regexp.MustCompile(`\([^)]*\)`)
	quoteRe       = regexp.MustCompile("[\"“”‘’]")
	charsetRe     = regexp.MustCompile(`[^a-z0-9\s']`)
	whitespaceRe  = regexp.MustCompile(`\s+`)

	versionRe  = regexp.MustCompile(`(?i)\([^)]*version[^)]*\)`)
	remixRe    = regexp.MustCompile(`(?i)\([^)]*remix[^)]*\)`)
	dashTailRe = regexp.MustCompile(`\s+-\s+.*$`)
	leadSplit  = regexp.MustCompile(`(?i)feat\.|featuring|with|&|,|\(|\)`)
)

// diacriticFolder strips combining marks after canonical decomposition,
// turning e.g. "Beyoncé" into "Beyonce".
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// AliasTable maps normalized artist spellings to their canonical form. It is
// explicit configuration passed into a Normalizer, never process-wide state,
// so tests can substitute alternate sets.
type AliasTable map[string]string

// DefaultAliases returns the curated set of recurring artist-name mismatches
// between chart credits and reference metadata.
func DefaultAliases() AliasTable {
	return AliasTable{
		"ross bagdasarian":               "david seville",
		"the weeknd":                     "weeknd",
		"p nk":                           "pink",
		"ac dc":                          "acdc",
		"marky mark and the funky bunch": "marky mark funky bunch",
		"prince and the revolution":      "prince",
		"puff daddy":                     "diddy",
		"jay z":                          "jayz",
	}
}

// Normalizer produces canonical comparison keys for titles and artists.
type Normalizer struct {
	aliases AliasTable
}

// New creates a Normalizer with the given alias table. A nil table disables
// artist canonicalization beyond Normalize.
func New(aliases AliasTable) *Normalizer {
	return &Normalizer{aliases: aliases}
}

// Normalize maps raw free text to its canonical comparable form: lower-case,
// diacritics folded to ASCII, "&" expanded to "and", feat./featuring/with
// connectives removed, parenthesized remarks and quote characters stripped,
// everything outside [a-z0-9 '] dropped, whitespace collapsed.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func (n *Normalizer) Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}
	s = ampersandRe.ReplaceAllString(s, " and ")
	s = connectiveRe.ReplaceAllString(s, " ")
	s = parentheticRe.ReplaceAllString(s, " ")
	s = quoteRe.ReplaceAllString(s, " ")
	s = charsetRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CanonArtist normalizes an artist credit and applies the alias table.
func (n *Normalizer) CanonArtist(raw string) string {
	s := n.Normalize(raw)
	if canon, ok := n.aliases[s]; ok {
		return canon
	}
	return s
}

// ComboKey builds the unit of comparison for matching: the normalized title
// followed by the canonical artist, space-joined and trimmed.
func (n *Normalizer) ComboKey(title, artist string) string {
	return strings.TrimSpace(n.Normalize(title) + " " + n.CanonArtist(artist))
}

// ArtistInitial returns the first byte of the canonical artist key, or ""
// when the key is empty. Used as a blocking key.
func (n *Normalizer) ArtistInitial(artist string) string {
	s := n.CanonArtist(artist)
	if s == "" {
		return ""
	}
	return s[:1]
}

// TitleFirstWord returns the first whitespace-delimited token of the
// normalized title, or "" when the title normalizes to nothing. Used as a
// blocking key.
func (n *Normalizer) TitleFirstWord(title string) string {
	s := n.Normalize(title)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// LeadArtist truncates an artist credit at the first connective, separator or
// parenthesis, keeping only the lead performer. This is for building search
// queries against external lyric services; comparison keys always go through
// Normalize/CanonArtist instead, which delete connective tokens rather than
// truncating.
func LeadArtist(artist string) string {
	parts := leadSplit.Split(artist, 2)
	return strings.TrimSpace(parts[0])
}

// SearchTitle strips version/remix parentheticals and dash-suffixed remarks
// from a title, for building search queries.
func SearchTitle(title string) string {
	t := versionRe.ReplaceAllString(title, "")
	t = remixRe.ReplaceAllString(t, "")
	t = dashTailRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}
