package chart

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/htmlutil"
)

const defaultBillboardBaseURL = "https://www.billboard.com"

// BillboardClient scrapes billboard.com's year-end chart pages. It is the
// fallback when the Wikipedia page for a year cannot be parsed.
type BillboardClient struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewBillboardClient creates a client against the live site.
func NewBillboardClient(logger *slog.Logger) *BillboardClient {
	return NewBillboardClientWithBaseURL(logger, defaultBillboardBaseURL)
}

// NewBillboardClientWithBaseURL creates a client with a custom base URL
// (for testing).
func NewBillboardClientWithBaseURL(logger *slog.Logger, baseURL string) *BillboardClient {
	return &BillboardClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(slog.String("source", "billboard")),
	}
}

// FetchYear returns the chart rows for one year from the year-end page.
func (c *BillboardClient) FetchYear(ctx context.Context, year int) ([]Entry, error) {
	url := fmt.Sprintf("%s/charts/year-end/%d/hot-100-songs/", c.baseURL, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	entries := parseBillboardList(doc, year)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no chart items found for %d", year)
	}
	c.logger.Debug("fetched year-end chart", slog.Int("year", year), slog.Int("rows", len(entries)))
	return entries, nil
}

// parseBillboardList walks the chart result list items: the title lives in
// the item's h3, the artist in the first c-label span that is not the rank
// number. Rank comes from the data-rank attribute when present, otherwise
// from item order.
func parseBillboardList(doc *html.Node, year int) []Entry {
	items := htmlutil.FindAll(doc, func(n *html.Node) bool {
		return htmlutil.IsElement(n, "li") &&
			(htmlutil.HasClass(n, "o-chart-results-list__item") || hasDescendantH3(n))
	})

	seen := make(map[int]bool)
	var entries []Entry
	rank := 0
	for _, it := range items {
		var title, artist string
		if h3s := htmlutil.FindAll(it, func(n *html.Node) bool { return htmlutil.IsElement(n, "h3") }); len(h3s) > 0 {
			title = htmlutil.Text(h3s[0])
		}
		spans := htmlutil.FindAll(it, func(n *html.Node) bool {
			return htmlutil.IsElement(n, "span") && htmlutil.HasClass(n, "c-label")
		})
		for _, sp := range spans {
			txt := htmlutil.Text(sp)
			if _, err := strconv.Atoi(txt); err == nil {
				continue // the rank badge
			}
			artist = txt
			break
		}

		if r, err := strconv.Atoi(htmlutil.Attr(it, "data-rank")); err == nil {
			rank = r
		} else if title != "" {
			rank++
		}

		if title == "" || artist == "" || rank < 1 || rank > 100 || seen[rank] {
			continue
		}
		seen[rank] = true
		entries = append(entries, Entry{Year: year, Rank: rank, Title: title, Artist: artist})
	}
	return entries
}

func hasDescendantH3(n *html.Node) bool {
	return len(htmlutil.FindAll(n, func(c *html.Node) bool { return htmlutil.IsElement(c, "h3") })) > 0
}
