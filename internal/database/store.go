package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
)

// Store persists pipeline runs, their match decisions, and the lyrics fetch
// cache. Dataset outputs stay flat CSV files; the store is infrastructure
// behind the fetch-once cache and the audit trail.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRun records the start of a pipeline command invocation and returns
// its id.
func (s *Store) CreateRun(ctx context.Context, command, params string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, command, params, started_at)
		VALUES (?, ?, ?, ?)
	`, id, command, params, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// SaveDecisions appends one row per decision to the audit trail, unmatched
// decisions included.
func (s *Store) SaveDecisions(ctx context.Context, runID string, decisions []linkage.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_decisions (run_id, year, rank, title, artist, matched_id, match_score, source_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range decisions {
		_, err := stmt.ExecContext(ctx,
			runID, d.Query.Year, d.Query.Rank, d.Query.Title, d.Query.Artist,
			d.MatchedID, d.Score, string(d.Provenance), now)
		if err != nil {
			return fmt.Errorf("inserting decision: %w", err)
		}
	}
	return tx.Commit()
}

// DecisionsForRun returns the audit rows of one run ordered by (year, rank).
func (s *Store) DecisionsForRun(ctx context.Context, runID string) ([]linkage.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, rank, title, artist, matched_id, match_score, source_label
		FROM match_decisions WHERE run_id = ? ORDER BY year, rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []linkage.Decision
	for rows.Next() {
		var d linkage.Decision
		var label string
		if err := rows.Scan(&d.Query.Year, &d.Query.Rank, &d.Query.Title, &d.Query.Artist,
			&d.MatchedID, &d.Score, &label); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.Provenance = linkage.Provenance(label)
		out = append(out, d)
	}
	return out, rows.Err()
}

// CachedLyric is one lyrics_cache row.
type CachedLyric struct {
	Year   int
	Rank   int
	Title  string
	Artist string
	Lyrics string
	URL    string
}

// GetCachedLyrics returns the cached fetch result for a key, if present.
// An empty Lyrics value is a valid cached miss: the fetch ran and found
// nothing, so it is not repeated.
func (s *Store) GetCachedLyrics(ctx context.Context, key string) (*CachedLyric, error) {
	var c CachedLyric
	err := s.db.QueryRowContext(ctx, `
		SELECT year, rank, title, artist, lyrics, url
		FROM lyrics_cache WHERE cache_key = ?
	`, key).Scan(&c.Year, &c.Rank, &c.Title, &c.Artist, &c.Lyrics, &c.URL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying lyrics cache: %w", err)
	}
	return &c, nil
}

// PutCachedLyrics stores a fetch result under the key, replacing any
// earlier entry.
func (s *Store) PutCachedLyrics(ctx context.Context, key string, c CachedLyric) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lyrics_cache (cache_key, year, rank, title, artist, lyrics, url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			lyrics = excluded.lyrics,
			url = excluded.url,
			fetched_at = excluded.fetched_at
	`, key, c.Year, c.Rank, c.Title, c.Artist, c.Lyrics, c.URL, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting lyrics cache: %w", err)
	}
	return nil
}
