package lyrics

import (
	"path/filepath"
	"testing"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
)

func TestRowsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.csv")
	rows := []Row{
		{Entry: chart.Entry{Year: 1999, Rank: 1, Title: "Believe", Artist: "Cher"},
			Lyrics: "do you believe\nin life after love", URL: "https://example.com/believe"},
		{Entry: chart.Entry{Year: 1986, Rank: 1, Title: "That's What Friends Are For", Artist: "Dionne & Friends"}},
	}
	if err := WriteRowsCSV(path, rows); err != nil {
		t.Fatalf("WriteRowsCSV: %v", err)
	}

	got, err := ReadRowsCSV(path)
	if err != nil {
		t.Fatalf("ReadRowsCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(got))
	}
	// Sorted by year on write.
	if got[0].Year != 1986 || got[1].Year != 1999 {
		t.Errorf("rows not sorted: %+v", got)
	}
	// Embedded newlines survive.
	if got[1].Lyrics != "do you believe\nin life after love" {
		t.Errorf("lyrics = %q", got[1].Lyrics)
	}
	if got[1].URL != "https://example.com/believe" {
		t.Errorf("url = %q", got[1].URL)
	}
}
