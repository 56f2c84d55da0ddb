package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/novaavatar/api/internal/config"
	"github.com/novaavatar/api/internal/model"
)

// RSSClient fetches content items from configured RSS/Atom feeds.
type RSSClient struct {
	httpClient *http.Client
	feeds      []config.FeedConfig
}

// NewRSSClient creates a scraper over the configured feeds
func NewRSSClient(cfg *config.ScraperConfig) *RSSClient {
	return &RSSClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		feeds: cfg.Feeds,
	}
}

type rssDocument struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// FetchAll pulls every configured feed and returns up to maxPerFeed items
// from each. Individual feed failures are logged and skipped; the combined
// error is returned only when every feed failed.
func (c *RSSClient) FetchAll(ctx context.Context, maxPerFeed int, searchTerm string) ([]model.ContentItem, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	var items []model.ContentItem
	var failures []string

	for _, feed := range c.feeds {
		feedItems, err := c.fetchFeed(ctx, feed, maxPerFeed)
		if err != nil {
			log.Printf("[RSS] feed %s failed: %v", feed.Name, err)
			failures = append(failures, fmt.Sprintf("%s: %v", feed.Name, err))
			continue
		}
		items = append(items, feedItems...)
	}

	if len(items) == 0 && len(failures) == len(c.feeds) {
		return nil, fmt.Errorf("all feeds failed: %s", strings.Join(failures, "; "))
	}

	if searchTerm != "" {
		items = filterByTerm(items, searchTerm)
	}
	return items, nil
}

func (c *RSSClient) fetchFeed(ctx context.Context, feed config.FeedConfig, max int) ([]model.ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	now := time.Now()
	var items []model.ContentItem
	for i, entry := range doc.Channel.Items {
		if max > 0 && i >= max {
			break
		}
		item := model.ContentItem{
			Title:       strings.TrimSpace(entry.Title),
			Description: stripHTML(entry.Description),
			Source:      "rss",
			SourceName:  feed.Name,
			URL:         strings.TrimSpace(entry.Link),
			ScrapedAt:   now,
		}
		if ts, err := parsePubDate(entry.PubDate); err == nil {
			item.PublishedAt = &ts
		}
		if item.Title == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchArticle retrieves an article page and extracts its readable text.
// Extraction is heuristic: paragraph contents with tags stripped.
func (c *RSSClient) FetchArticle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "novaavatar-scraper/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read article: %w", err)
	}

	paragraphs := paragraphPattern.FindAllStringSubmatch(string(body), -1)
	var parts []string
	for _, p := range paragraphs {
		text := stripHTML(p[1])
		if len(text) > 40 {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no readable paragraphs found")
	}
	return strings.Join(parts, "\n\n"), nil
}

var (
	paragraphPattern = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func filterByTerm(items []model.ContentItem, term string) []model.ContentItem {
	term = strings.ToLower(term)
	var out []model.ContentItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), term) ||
			strings.Contains(strings.ToLower(item.Description), term) {
			out = append(out, item)
		}
	}
	return out
}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// IsConfigured returns true if at least one feed is configured
func (c *RSSClient) IsConfigured() bool {
	return len(c.feeds) > 0
}
