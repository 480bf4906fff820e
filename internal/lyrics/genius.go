// Package lyrics fetches song lyrics from Genius: API search for the best
// candidate page, then a scrape of the lyric containers on that page.
// Results are cached in the pipeline database so a song is fetched at most
// once across runs.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/htmlutil"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
)

const (
	defaultAPIBaseURL = "https://api.genius.com"
	userAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// GeniusClient talks to the Genius search API and scrapes lyric pages.
type GeniusClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	apiBaseURL string
	token      string
}

// NewGeniusClient creates a client against the live API. requestsPerSecond
// throttles both API searches and page scrapes.
func NewGeniusClient(token string, requestsPerSecond float64, logger *slog.Logger) *GeniusClient {
	return NewGeniusClientWithBaseURL(token, requestsPerSecond, logger, defaultAPIBaseURL)
}

// NewGeniusClientWithBaseURL creates a client with a custom API base URL
// (for testing).
func NewGeniusClientWithBaseURL(token string, requestsPerSecond float64, logger *slog.Logger, apiBaseURL string) *GeniusClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &GeniusClient{
		client:     &http.Client{Timeout: 25 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:     logger.With(slog.String("provider", "genius")),
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		token:      token,
	}
}

type searchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				Title         string `json:"title"`
				URL           string `json:"url"`
				PrimaryArtist struct {
					Name string `json:"name"`
				} `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

// FetchLyrics searches for the song and scrapes the best hit's lyric page.
// The query uses the cleaned title and the lead artist only; candidates are
// ranked by token-set similarity against it. Returns empty lyrics (no
// error) when nothing plausible is found.
func (c *GeniusClient) FetchLyrics(ctx context.Context, title, artist string) (lyrics, pageURL string, err error) {
	if c.token == "" {
		return "", "", fmt.Errorf("missing genius access token")
	}

	query := strings.TrimSpace(normalize.SearchTitle(title) + " " + normalize.LeadArtist(artist))
	hits, err := c.search(ctx, query)
	if err != nil {
		return "", "", err
	}

	bestURL, bestScore := "", -1
	for _, h := range hits.Response.Hits {
		cand := h.Result.Title + " " + h.Result.PrimaryArtist.Name
		if sc := linkage.TokenSetRatio(strings.ToLower(query), strings.ToLower(cand)); sc > bestScore {
			bestScore = sc
			bestURL = h.Result.URL
		}
	}
	if bestURL == "" {
		return "", "", nil
	}

	text, err := c.scrapePage(ctx, bestURL)
	if err != nil {
		c.logger.Warn("lyric page scrape failed", slog.String("url", bestURL), slog.String("error", err.Error()))
		return "", bestURL, nil
	}
	return text, bestURL, nil
}

func (c *GeniusClient) search(ctx context.Context, query string) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := fmt.Sprintf("%s/search?%s", c.apiBaseURL, url.Values{
		"q":        {query},
		"per_page": {"5"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching genius: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("genius API 401: check the access token")
	case http.StatusForbidden:
		return nil, fmt.Errorf("genius API 403: access blocked")
	default:
		return nil, fmt.Errorf("genius API status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &sr, nil
}

// scrapePage extracts the text of every data-lyrics-container block on the
// song page, <br> rendered as newlines.
func (c *GeniusClient) scrapePage(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching lyric page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lyric page status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing lyric page: %w", err)
	}

	blocks := htmlutil.FindAll(doc, func(n *html.Node) bool {
		return htmlutil.IsElement(n, "div") && htmlutil.Attr(n, "data-lyrics-container") == "true"
	})
	if len(blocks) == 0 {
		blocks = htmlutil.FindAll(doc, func(n *html.Node) bool {
			return htmlutil.IsElement(n, "div") && htmlutil.HasClass(n, "Lyrics__Root")
		})
	}

	var parts []string
	for _, b := range blocks {
		if text := htmlutil.Text(b); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
