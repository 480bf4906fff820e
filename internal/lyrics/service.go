package lyrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/database"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

// Row is a chart entry with its fetched raw lyrics.
type Row struct {
	chart.Entry
	Lyrics string
	URL    string
}

// Fetcher resolves one song to its lyrics. Implemented by GeniusClient.
type Fetcher interface {
	FetchLyrics(ctx context.Context, title, artist string) (lyrics, pageURL string, err error)
}

// Service fetches lyrics for chart rows through the database cache. One row
// failing degrades that row to empty lyrics; the batch continues.
type Service struct {
	fetcher Fetcher
	store   *database.Store
	logger  *slog.Logger
}

// NewService creates a lyrics fetch service.
func NewService(fetcher Fetcher, store *database.Store, logger *slog.Logger) *Service {
	return &Service{fetcher: fetcher, store: store, logger: logger}
}

// CacheKey derives the stable, filename-safe cache key for a chart row.
func CacheKey(e chart.Entry) string {
	return normalize.SafeFilename(fmt.Sprintf("%d_%d_%s_%s", e.Year, e.Rank, e.Title, e.Artist))
}

// FetchForChart returns one Row per chart entry, consulting the cache
// first. A cached empty result counts as a hit: the song was looked up
// before and found nothing, so the network is not retried.
func (s *Service) FetchForChart(ctx context.Context, entries []chart.Entry) ([]Row, error) {
	rows := make([]Row, 0, len(entries))
	fetched, hits := 0, 0

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		key := CacheKey(e)
		cached, err := s.store.GetCachedLyrics(ctx, key)
		if err != nil {
			return rows, fmt.Errorf("reading lyrics cache: %w", err)
		}
		if cached != nil {
			hits++
			rows = append(rows, Row{Entry: e, Lyrics: cached.Lyrics, URL: cached.URL})
			continue
		}

		lyr, pageURL, err := s.fetcher.FetchLyrics(ctx, e.Title, e.Artist)
		if err != nil {
			s.logger.Warn("lyrics fetch failed",
				slog.Int("year", e.Year), slog.Int("rank", e.Rank),
				slog.String("title", e.Title), slog.String("error", err.Error()))
			lyr, pageURL = "", ""
		}
		fetched++

		if err := s.store.PutCachedLyrics(ctx, key, database.CachedLyric{
			Year: e.Year, Rank: e.Rank, Title: e.Title, Artist: e.Artist,
			Lyrics: lyr, URL: pageURL,
		}); err != nil {
			return rows, fmt.Errorf("writing lyrics cache: %w", err)
		}
		rows = append(rows, Row{Entry: e, Lyrics: lyr, URL: pageURL})
	}

	s.logger.Info("lyrics fetch complete",
		slog.Int("rows", len(rows)), slog.Int("cache_hits", hits), slog.Int("fetched", fetched))
	return rows, nil
}
