package model

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// ContentItem is a single piece of scraped content offered to the pipeline.
// Immutable once scraped; deduplicated by URL/title fingerprint.
type ContentItem struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	FullText    string     `json:"fullText,omitempty"`
	Source      string     `json:"source,omitempty"` // "rss", "manual"
	SourceName  string     `json:"sourceName,omitempty"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ScrapedAt   time.Time  `json:"scrapedAt,omitempty"`
	Score       float64    `json:"score,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
}

// Fingerprint returns a stable dedupe key derived from the item's URL and
// normalized title.
func (c *ContentItem) Fingerprint() string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(c.URL))))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(c.Title))))
	return hex.EncodeToString(h.Sum(nil))
}

// BodyText returns the richest text available for script generation.
func (c *ContentItem) BodyText() string {
	if c.FullText != "" {
		return c.FullText
	}
	return c.Description
}
