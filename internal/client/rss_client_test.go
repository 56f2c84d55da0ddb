package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/novaavatar/api/internal/config"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Tech Daily</title>
    <item>
      <title>Solar Power Hits Record Output</title>
      <link>https://example.com/solar</link>
      <description>&lt;p&gt;Solar farms produced a &amp;amp; record amount of power.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jan 2023 15:04:05 -0700</pubDate>
    </item>
    <item>
      <title>New Battery Chemistry Announced</title>
      <link>https://example.com/battery</link>
      <description>A cheaper battery cell.</description>
      <pubDate>not a date</pubDate>
    </item>
    <item>
      <title>Third Story</title>
      <link>https://example.com/third</link>
      <description>Filler.</description>
    </item>
  </channel>
</rss>`

func feedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newFeedClient(urls ...string) *RSSClient {
	feeds := make([]config.FeedConfig, 0, len(urls))
	for i, u := range urls {
		feeds = append(feeds, config.FeedConfig{Name: "feed-" + string(rune('a'+i)), URL: u})
	}
	return NewRSSClient(&config.ScraperConfig{Feeds: feeds})
}

func TestFetchAllParsesFeed(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	})

	c := newFeedClient(srv.URL)
	items, err := c.FetchAll(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected maxPerFeed to cap at 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Solar Power Hits Record Output" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://example.com/solar" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Description != "Solar farms produced a & record amount of power." {
		t.Errorf("description not stripped of HTML: %q", first.Description)
	}
	if first.PublishedAt == nil {
		t.Error("expected parsed pubDate")
	} else if first.PublishedAt.UTC().Format(time.RFC3339) != "2023-01-02T22:04:05Z" {
		t.Errorf("pubDate = %s", first.PublishedAt)
	}
	if first.Source != "rss" || first.SourceName != "feed-a" {
		t.Errorf("source = %s/%s", first.Source, first.SourceName)
	}

	if items[1].PublishedAt != nil {
		t.Error("expected unparseable pubDate to be omitted")
	}
}

func TestFetchAllFiltersBySearchTerm(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	})

	c := newFeedClient(srv.URL)
	items, err := c.FetchAll(context.Background(), 0, "battery")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].Title != "New Battery Chemistry Announced" {
		t.Fatalf("expected only the battery story, got %v", items)
	}
}

func TestFetchAllSkipsFailedFeeds(t *testing.T) {
	good := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	})
	bad := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newFeedClient(bad.URL, good.URL)
	items, err := c.FetchAll(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected items from the healthy feed, got %d", len(items))
	}
}

func TestFetchAllErrorsWhenEveryFeedFails(t *testing.T) {
	bad := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newFeedClient(bad.URL)
	if _, err := c.FetchAll(context.Background(), 0, ""); err == nil {
		t.Fatal("expected error when all feeds fail")
	}
}

func TestFetchArticleExtractsParagraphs(t *testing.T) {
	page := `<html><body>
<p>Short.</p>
<p>This is a long enough paragraph about renewable energy to be extracted.</p>
<p>Another substantial paragraph with <a href="#">a link</a> inside it that should survive stripping.</p>
</body></html>`
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})

	c := newFeedClient(srv.URL)
	text, err := c.FetchArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch article: %v", err)
	}
	if !strings.Contains(text, "renewable energy") || !strings.Contains(text, "a link inside it") {
		t.Errorf("unexpected extraction: %q", text)
	}
	if strings.Contains(text, "Short.") {
		t.Error("expected short paragraphs dropped")
	}
	if strings.Contains(text, "<a") {
		t.Error("expected tags stripped")
	}
}

func TestFetchArticleNoParagraphs(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><div>nothing here</div></body></html>"))
	})

	c := newFeedClient(srv.URL)
	if _, err := c.FetchArticle(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for page without paragraphs")
	}
}

func TestStripHTML(t *testing.T) {
	in := `<p>Tom &amp; Jerry say &quot;hi&quot;  &nbsp; twice</p>`
	want := `Tom & Jerry say "hi" twice`
	if got := stripHTML(in); got != want {
		t.Errorf("stripHTML = %q, want %q", got, want)
	}
}
