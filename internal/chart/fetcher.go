package chart

import (
	"context"
	"log/slog"
	"time"
)

// Source supplies chart rows for one year.
type Source interface {
	FetchYear(ctx context.Context, year int) ([]Entry, error)
}

// Fetcher walks a year range over an ordered list of sources. Fetching is
// deliberately sequential with a polite delay between years.
type Fetcher struct {
	sources []Source
	logger  *slog.Logger
	delay   time.Duration
}

// NewFetcher creates a Fetcher trying sources in order for each year.
func NewFetcher(logger *slog.Logger, sources ...Source) *Fetcher {
	return &Fetcher{sources: sources, logger: logger, delay: time.Second}
}

// FetchRange fetches every year in [start, end]. A year for which all
// sources fail contributes zero rows and a warning; the range continues.
func (f *Fetcher) FetchRange(ctx context.Context, start, end int) ([]Entry, error) {
	var all []Entry
	for year := start; year <= end; year++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		entries := f.fetchYear(ctx, year)
		if len(entries) == 0 {
			f.logger.Warn("no chart rows for year", slog.Int("year", year))
		} else {
			all = append(all, entries...)
			f.logger.Info("fetched year", slog.Int("year", year), slog.Int("rows", len(entries)))
		}

		if year < end && f.delay > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(f.delay):
			}
		}
	}
	return all, nil
}

func (f *Fetcher) fetchYear(ctx context.Context, year int) []Entry {
	for _, src := range f.sources {
		entries, err := src.FetchYear(ctx, year)
		if err != nil {
			f.logger.Warn("chart source failed", slog.Int("year", year), slog.String("error", err.Error()))
			continue
		}
		if len(entries) > 0 {
			return entries
		}
	}
	return nil
}
