package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchLyricsPicksBestHit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search":
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("Authorization = %q", got)
			}
			fmt.Fprintf(w, `{"response":{"hits":[
				{"result":{"title":"Believe (Cover)","url":"%s/wrong","primary_artist":{"name":"Somebody Else"}}},
				{"result":{"title":"Believe","url":"%s/songs/believe","primary_artist":{"name":"Cher"}}}
			]}}`, srv.URL, srv.URL)
		case r.URL.Path == "/songs/believe":
			_, _ = w.Write([]byte(`<html><body>
				<div data-lyrics-container="true">No matter how hard I try<br>You keep pushing me aside</div>
			</body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewGeniusClientWithBaseURL("test-token", 100, testLogger(), srv.URL)
	lyr, pageURL, err := c.FetchLyrics(context.Background(), "Believe", "Cher")
	if err != nil {
		t.Fatalf("FetchLyrics: %v", err)
	}
	if !strings.HasSuffix(pageURL, "/songs/believe") {
		t.Errorf("pageURL = %q, want the Cher hit", pageURL)
	}
	if !strings.Contains(lyr, "No matter how hard I try\nYou keep pushing me aside") {
		t.Errorf("lyrics = %q, want br rendered as newline", lyr)
	}
}

func TestFetchLyricsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewGeniusClientWithBaseURL("bad-token", 100, testLogger(), srv.URL)
	if _, _, err := c.FetchLyrics(context.Background(), "Believe", "Cher"); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestFetchLyricsNoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"hits":[]}}`))
	}))
	defer srv.Close()

	c := NewGeniusClientWithBaseURL("test-token", 100, testLogger(), srv.URL)
	lyr, pageURL, err := c.FetchLyrics(context.Background(), "Nonexistent", "Nobody")
	if err != nil {
		t.Fatalf("FetchLyrics: %v", err)
	}
	if lyr != "" || pageURL != "" {
		t.Errorf("got (%q, %q), want empty result", lyr, pageURL)
	}
}

func TestFetchLyricsMissingToken(t *testing.T) {
	c := NewGeniusClient("", 2, testLogger())
	if _, _, err := c.FetchLyrics(context.Background(), "Believe", "Cher"); err == nil {
		t.Fatal("expected error for missing token")
	}
}

type stubFetcher struct {
	calls  int
	lyrics string
	err    error
}

func (f *stubFetcher) FetchLyrics(context.Context, string, string) (string, string, error) {
	f.calls++
	return f.lyrics, "https://example.com/song", f.err
}

func setupStore(t *testing.T) *database.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return database.NewStore(db)
}

func TestServiceUsesCache(t *testing.T) {
	fetcher := &stubFetcher{lyrics: "take my hand"}
	svc := NewService(fetcher, setupStore(t), testLogger())
	entries := []chart.Entry{{Year: 1986, Rank: 1, Title: "Livin' On A Prayer", Artist: "Bon Jovi"}}

	rows, err := svc.FetchForChart(context.Background(), entries)
	if err != nil {
		t.Fatalf("FetchForChart: %v", err)
	}
	if len(rows) != 1 || rows[0].Lyrics != "take my hand" {
		t.Fatalf("rows = %+v", rows)
	}
	if fetcher.calls != 1 {
		t.Fatalf("calls = %d, want 1", fetcher.calls)
	}

	// Second pass hits the cache; the fetcher is not consulted again.
	rows, err = svc.FetchForChart(context.Background(), entries)
	if err != nil {
		t.Fatalf("FetchForChart (cached): %v", err)
	}
	if rows[0].Lyrics != "take my hand" {
		t.Errorf("cached lyrics = %q", rows[0].Lyrics)
	}
	if fetcher.calls != 1 {
		t.Errorf("calls = %d, want 1 (cache hit)", fetcher.calls)
	}
}

func TestServiceRowFailureDoesNotAbortBatch(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("network down")}
	svc := NewService(fetcher, setupStore(t), testLogger())
	entries := []chart.Entry{
		{Year: 1986, Rank: 1, Title: "Livin' On A Prayer", Artist: "Bon Jovi"},
		{Year: 1986, Rank: 2, Title: "Bad Medicine", Artist: "Bon Jovi"},
	}

	rows, err := svc.FetchForChart(context.Background(), entries)
	if err != nil {
		t.Fatalf("FetchForChart: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Lyrics != "" {
			t.Errorf("row %d lyrics = %q, want empty on failure", r.Rank, r.Lyrics)
		}
	}
}
