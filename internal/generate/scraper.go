package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/model"
)

// ContentScraper pulls content items from RSS feeds. Without configured
// feeds it serves canned items so the pipeline stays usable offline.
type ContentScraper struct {
	rss         *client.RSSClient
	maxFullText int
}

func NewContentScraper(rss *client.RSSClient, maxFullText int) *ContentScraper {
	if maxFullText <= 0 {
		maxFullText = 6000
	}
	return &ContentScraper{rss: rss, maxFullText: maxFullText}
}

// Scrape implements pipeline.Scraper
func (s *ContentScraper) Scrape(ctx context.Context, max int, searchTerm string) ([]model.ContentItem, error) {
	if s.rss == nil || !s.rss.IsConfigured() {
		return s.scrapeMock(), nil
	}
	items, err := s.rss.FetchAll(ctx, max, searchTerm)
	if err != nil {
		return nil, fmt.Errorf("content scraping failed: %w", err)
	}
	return items, nil
}

// FetchFullArticle implements pipeline.Scraper
func (s *ContentScraper) FetchFullArticle(ctx context.Context, url string) (string, error) {
	if s.rss == nil || !s.rss.IsConfigured() {
		return "", fmt.Errorf("scraper not configured")
	}
	text, err := s.rss.FetchArticle(ctx, url)
	if err != nil {
		return "", err
	}
	if len(text) > s.maxFullText {
		text = text[:s.maxFullText]
	}
	return text, nil
}

// Mock implementation for development/testing
func (s *ContentScraper) scrapeMock() []model.ContentItem {
	now := time.Now()
	return []model.ContentItem{
		{
			Title:       "AI Breakthrough in Medical Diagnosis",
			Description: "A new AI system can detect diseases with 95% accuracy, outperforming experienced radiologists in clinical trials.",
			Source:      "mock",
			SourceName:  "Tech Daily",
			URL:         "https://example.com/ai-medical-breakthrough",
			ScrapedAt:   now,
		},
		{
			Title:       "Quantum Computing Reaches New Milestone",
			Description: "Researchers demonstrate error-corrected quantum computation at scale for the first time.",
			Source:      "mock",
			SourceName:  "Science Wire",
			URL:         "https://example.com/quantum-milestone",
			ScrapedAt:   now,
		},
		{
			Title:       "Open Source Model Tops Benchmark Charts",
			Description: "A freely licensed language model has overtaken proprietary systems on several reasoning benchmarks.",
			Source:      "mock",
			SourceName:  "Tech Daily",
			URL:         "https://example.com/open-source-model",
			ScrapedAt:   now,
		},
	}
}
