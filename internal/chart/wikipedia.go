package chart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/net/html"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/htmlutil"
)

const (
	defaultWikipediaBaseURL = "https://en.wikipedia.org"
	userAgent               = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var footnoteRe = regexp.MustCompile(`\[[^\]]*\]`)

// WikipediaClient scrapes Year-End Hot 100 tables from the per-year
// Wikipedia pages.
type WikipediaClient struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewWikipediaClient creates a client against the live site.
func NewWikipediaClient(logger *slog.Logger) *WikipediaClient {
	return NewWikipediaClientWithBaseURL(logger, defaultWikipediaBaseURL)
}

// NewWikipediaClientWithBaseURL creates a client with a custom base URL
// (for testing).
func NewWikipediaClientWithBaseURL(logger *slog.Logger, baseURL string) *WikipediaClient {
	return &WikipediaClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(slog.String("source", "wikipedia")),
	}
}

// FetchYear returns the chart rows for one year. Transient HTTP failures are
// retried with backoff; a page that yields no usable table is an error the
// caller downgrades to zero rows.
func (c *WikipediaClient) FetchYear(ctx context.Context, year int) ([]Entry, error) {
	url := fmt.Sprintf("%s/wiki/Billboard_Year-End_Hot_100_singles_of_%d", c.baseURL, year)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	entries, err := parseWikipediaYear(body, year)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched year-end chart", slog.Int("year", year), slog.Int("rows", len(entries)))
	return entries, nil
}

func (c *WikipediaClient) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return body, nil
}

// parseWikipediaYear picks the table carrying title and artist columns from
// the page and extracts (rank, title, artist) rows. Footnote markers and
// surrounding quotes are stripped; rows outside rank 1-100 are dropped and
// duplicate ranks keep the first occurrence.
func parseWikipediaYear(body []byte, year int) ([]Entry, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	tables := htmlutil.FindAll(doc, func(n *html.Node) bool {
		return htmlutil.IsElement(n, "table")
	})

	for _, table := range tables {
		entries := parseChartTable(table, year)
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, fmt.Errorf("no title/artist table found for %d", year)
}

func parseChartTable(table *html.Node, year int) []Entry {
	rows := htmlutil.FindAll(table, func(n *html.Node) bool {
		return htmlutil.IsElement(n, "tr")
	})
	if len(rows) < 2 {
		return nil
	}

	headers := cellTexts(rows[0])
	rankIdx, titleIdx, artistIdx := -1, -1, -1
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "no." || h == "no" || h == "position" || h == "rank" || h == "№":
			rankIdx = i
		case strings.Contains(h, "title") || strings.Contains(h, "single"):
			titleIdx = i
		case strings.Contains(h, "artist"):
			artistIdx = i
		}
	}
	if titleIdx < 0 || artistIdx < 0 {
		return nil
	}

	seen := make(map[int]bool)
	var entries []Entry
	ordinal := 0
	for _, tr := range rows[1:] {
		cells := cellTexts(tr)
		if len(cells) <= titleIdx || len(cells) <= artistIdx {
			continue
		}

		rank := 0
		if rankIdx >= 0 && rankIdx < len(cells) {
			rank, _ = strconv.Atoi(strings.TrimSpace(cells[rankIdx]))
		}
		if rank == 0 {
			ordinal++
			rank = ordinal
		} else {
			ordinal = rank
		}

		title := cleanCell(cells[titleIdx])
		title = strings.Trim(title, `"“”'‘’`)
		artist := cleanCell(cells[artistIdx])
		if title == "" || artist == "" || rank < 1 || rank > 100 || seen[rank] {
			continue
		}
		seen[rank] = true
		entries = append(entries, Entry{Year: year, Rank: rank, Title: title, Artist: artist})
	}
	return entries
}

func cellTexts(tr *html.Node) []string {
	cells := htmlutil.FindAll(tr, func(n *html.Node) bool {
		return htmlutil.IsElement(n, "td") || htmlutil.IsElement(n, "th")
	})
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = htmlutil.Text(c)
	}
	return out
}

func cleanCell(s string) string {
	s = footnoteRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
