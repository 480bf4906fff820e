// Package linkage joins chart rows to heterogeneous reference records by
// fuzzy string similarity. Reference pools come in three shapes (chart-style
// metadata, bag-of-words tracks, free-text lyric files); the matcher and the
// blocking index only ever see the precomputed keys, never the variant.
package linkage

import (
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

// Kind tags the reference-record variant a Record was built from.
type Kind int

// Reference record variants.
const (
	KindMetadata Kind = iota // (year, position, title, artist), exact-key joinable
	KindBagOfWords           // stable track id with token counts, no year
	KindFreeText             // display label derived from a lyric file
)

// Record is a reference record with its comparison keys computed once at
// construction. Keys are pure functions of the raw fields; a Record is never
// mutated after it is built.
type Record struct {
	Kind     Kind
	ID       string
	Year     int // metadata variant only, 0 otherwise
	Position int // metadata variant only, 0 otherwise
	Title    string
	Artist   string
	Label    string // free-text variant only

	ComboKey       string
	ArtistInitial  string
	TitleFirstWord string
}

// NewMetadataRecord builds a metadata-indexed record joinable on
// (year, position).
func NewMetadataRecord(n *normalize.Normalizer, id string, year, position int, title, artist string) *Record {
	return &Record{
		Kind:           KindMetadata,
		ID:             id,
		Year:           year,
		Position:       position,
		Title:          title,
		Artist:         artist,
		ComboKey:       n.ComboKey(title, artist),
		ArtistInitial:  n.ArtistInitial(artist),
		TitleFirstWord: n.TitleFirstWord(title),
	}
}

// NewBagOfWordsRecord builds a record for a bag-of-words track. The payload
// itself stays with the loader; linkage only needs the id and keys.
func NewBagOfWordsRecord(n *normalize.Normalizer, id, title, artist string) *Record {
	return &Record{
		Kind:           KindBagOfWords,
		ID:             id,
		Title:          title,
		Artist:         artist,
		ComboKey:       n.ComboKey(title, artist),
		ArtistInitial:  n.ArtistInitial(artist),
		TitleFirstWord: n.TitleFirstWord(title),
	}
}

// NewFreeTextRecord builds a record for a free-text lyric file identified
// only by a best-effort display label. No artist is known, so the record
// blocks on the label's first word alone.
func NewFreeTextRecord(n *normalize.Normalizer, id, label string) *Record {
	key := n.Normalize(label)
	return &Record{
		Kind:           KindFreeText,
		ID:             id,
		Label:          label,
		ComboKey:       key,
		TitleFirstWord: firstWord(key),
	}
}

func firstWord(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return s[:i]
		}
	}
	return s
}
