package stubs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/lyrics"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStubNameSanitizes(t *testing.T) {
	got := StubName(1986, "Bon Jovi", "Livin' On A Prayer")
	want := "1986 _ Bon Jovi _ Livin' On A Prayer.txt"
	if got != want {
		t.Errorf("StubName = %q, want %q", got, want)
	}

	got = StubName(2001, "AC/DC", `Back: "In" Black?`)
	if strings.ContainsAny(got, `\/*?:"<>|`) {
		t.Errorf("StubName left unsafe characters: %q", got)
	}

	long := strings.Repeat("x", 400)
	if got := StubName(2001, long, long); len(got) > 180 {
		t.Errorf("len(StubName) = %d, want <= 180", len(got))
	}
}

func TestParseStubName(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		artist string
		title  string
		ok     bool
	}{
		{"1986 | Bon Jovi | Livin' On A Prayer.txt", 1986, "Bon Jovi", "Livin' On A Prayer", true},
		{"1986 _ Bon Jovi _ Livin' On A Prayer.txt", 1986, "Bon Jovi", "Livin' On A Prayer", true},
		{"1999 - Cher - Believe.txt", 1999, "Cher", "Believe", true},
		// Extra separators fold into the title.
		{"1977 _ Meco _ Star Wars Theme _ Cantina Band.txt", 1977, "Meco", "Star Wars Theme Cantina Band", true},
		{"notes.txt", 0, "", "", false},
		{"86 _ Artist _ Title.txt", 0, "", "", false},
	}
	for _, tt := range tests {
		year, artist, title, ok := ParseStubName(tt.name)
		if ok != tt.ok {
			t.Errorf("ParseStubName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if year != tt.year || artist != tt.artist || title != tt.title {
			t.Errorf("ParseStubName(%q) = (%d, %q, %q), want (%d, %q, %q)",
				tt.name, year, artist, title, tt.year, tt.artist, tt.title)
		}
	}
}

func row(year, rank int, title, artist, lyr string) lyrics.Row {
	return lyrics.Row{Entry: chart.Entry{Year: year, Rank: rank, Title: title, Artist: artist}, Lyrics: lyr}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	rows := []lyrics.Row{
		row(1986, 1, "Livin' On A Prayer", "Bon Jovi", ""),
		row(1986, 2, "Filled", "Someone", "has lyrics"),
		row(1986, 50, "Not Top 5", "Someone", ""),
		row(1930, 1, "Out Of Window", "Someone", ""),
	}

	created, err := Generate(dir, rows, 1958, 2022)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	path := filepath.Join(dir, StubName(1986, "Bon Jovi", "Livin' On A Prayer"))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stub not created: %v", err)
	}

	// Re-run leaves existing stubs untouched.
	if err := os.WriteFile(path, []byte("pasted lyrics"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	created, err = Generate(dir, rows, 1958, 2022)
	if err != nil {
		t.Fatalf("Generate (rerun): %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d on rerun, want 0", created)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "pasted lyrics" {
		t.Errorf("existing stub overwritten: %q", data)
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	rows := []lyrics.Row{
		row(1986, 1, "Livin' On A Prayer", "Bon Jovi", ""),
		row(1999, 1, "Believe", "Cher", ""),
		row(1986, 2, "Already Done", "Someone", "kept"),
	}

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	write(StubName(1986, "Bon Jovi", "Livin' On A Prayer"), "woah we're half way there")
	write(StubName(1999, "Cher", "Believe"), "") // still empty, must be skipped
	write("garbage name.txt", "text that matches nothing")

	m := NewMerger(normalize.New(normalize.DefaultAliases()), 75, 1958, 2022, testLogger())
	filled, err := m.Merge(dir, rows)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if filled != 1 {
		t.Fatalf("filled = %d, want 1", filled)
	}
	if rows[0].Lyrics != "woah we're half way there" {
		t.Errorf("row 0 lyrics = %q", rows[0].Lyrics)
	}
	if rows[1].Lyrics != "" {
		t.Errorf("row 1 filled from empty stub: %q", rows[1].Lyrics)
	}
	if rows[2].Lyrics != "kept" {
		t.Errorf("row 2 overwritten: %q", rows[2].Lyrics)
	}
}

func TestMergeGlobalFallback(t *testing.T) {
	dir := t.TempDir()
	rows := []lyrics.Row{
		row(1999, 1, "Believe", "Cher", ""),
	}
	// Stub carries the wrong year; no 1990 rows exist, so the merge falls
	// back to the global empty set.
	name := StubName(1990, "Cher", "Believe")
	if err := os.WriteFile(filepath.Join(dir, name), []byte("do you believe in life after love"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewMerger(normalize.New(normalize.DefaultAliases()), 75, 1958, 2022, testLogger())
	filled, err := m.Merge(dir, rows)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if filled != 1 || rows[0].Lyrics == "" {
		t.Errorf("global fallback did not fill: filled=%d rows=%+v", filled, rows)
	}
}

func TestMergeBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	rows := []lyrics.Row{
		row(1986, 1, "Livin' On A Prayer", "Bon Jovi", ""),
	}
	name := StubName(1986, "Qqwx", "Completely Different Thing")
	if err := os.WriteFile(filepath.Join(dir, name), []byte("some pasted text"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewMerger(normalize.New(normalize.DefaultAliases()), 75, 1958, 2022, testLogger())
	filled, err := m.Merge(dir, rows)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if filled != 0 || rows[0].Lyrics != "" {
		t.Errorf("below-threshold stub filled a row: filled=%d rows=%+v", filled, rows)
	}
}

func TestWatcherTriggersMerge(t *testing.T) {
	dir := t.TempDir()
	merged := make(chan struct{}, 1)
	w := NewWatcher(func(context.Context) error {
		select {
		case merged <- struct{}{}:
		default:
		}
		return nil
	}, testLogger())
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, dir) }()

	// Give the watcher a moment to register, then drop a stub file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "1986 _ Bon Jovi _ Livin' On A Prayer.txt"), []byte("text"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-merged:
	case <-time.After(5 * time.Second):
		t.Fatal("merge not triggered by stub write")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
