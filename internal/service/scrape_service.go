package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/store"
)

// fullTextLimit bounds how many items get a full-article fetch per scrape.
// Article pages are slow; the rest keep their feed description.
const fullTextLimit = 3

// ScrapeService pulls fresh content, deduplicates it against previously
// seen items and scores it for relevance.
type ScrapeService struct {
	scraper      pipeline.Scraper
	fingerprints store.FingerprintStore
}

func NewScrapeService(scraper pipeline.Scraper, fingerprints store.FingerprintStore) *ScrapeService {
	return &ScrapeService{
		scraper:      scraper,
		fingerprints: fingerprints,
	}
}

// Scrape fetches content items. Items whose fingerprint was seen in an
// earlier scrape are dropped; when every source fails the call fails with
// ErrSourceUnavailable so callers can distinguish "nothing new" from
// "nothing reachable".
func (s *ScrapeService) Scrape(ctx context.Context, req *model.ScrapeRequest) (*model.ScrapeResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	items, err := s.scraper.Scrape(ctx, limit, req.SearchTerm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrSourceUnavailable, err)
	}

	fresh := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		seen, err := s.fingerprints.Seen(ctx, item.Fingerprint())
		if err != nil {
			return nil, fmt.Errorf("fingerprint check failed: %w", err)
		}
		if seen {
			continue
		}
		item.Score = scoreItem(&item)
		fresh = append(fresh, item)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Score > fresh[j].Score
	})
	if len(fresh) > limit {
		fresh = fresh[:limit]
	}

	// Only items actually handed to the caller count as seen. Items cut by
	// the limit stay eligible for a later scrape.
	fingerprints := make([]string, len(fresh))
	for i := range fresh {
		fingerprints[i] = fresh[i].Fingerprint()
	}
	if err := s.fingerprints.MarkSeen(ctx, fingerprints...); err != nil {
		return nil, fmt.Errorf("fingerprint mark failed: %w", err)
	}

	// Best effort: enrich the top items with the full article text so
	// script generation has more to work with.
	for i := range fresh {
		if i >= fullTextLimit {
			break
		}
		text, err := s.scraper.FetchFullArticle(ctx, fresh[i].URL)
		if err != nil {
			log.Printf("[Scrape] full text fetch failed for %s: %v", fresh[i].URL, err)
			continue
		}
		fresh[i].FullText = text
	}

	return &model.ScrapeResponse{
		Items: fresh,
		Count: len(fresh),
	}, nil
}

// relevanceKeywords bias scoring toward content that makes good short-form
// video material.
var relevanceKeywords = []string{
	"ai", "artificial intelligence", "breakthrough", "launch", "research",
	"robot", "quantum", "startup", "release", "discover",
}

func scoreItem(item *model.ContentItem) float64 {
	text := strings.ToLower(item.Title + " " + item.Description)
	var score float64
	for _, kw := range relevanceKeywords {
		if strings.Contains(text, kw) {
			score += 1.0
			item.Keywords = append(item.Keywords, kw)
		}
	}
	// Longer descriptions give the script generator more substance.
	if len(item.Description) > 200 {
		score += 0.5
	}
	return score
}
