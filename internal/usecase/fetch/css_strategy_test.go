package fetch

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"omninews-ingest/internal/domain/entity"
)

func mustParseIP(t *testing.T, s string) net.IP {
	t.Helper()
	ip := net.ParseIP(s)
	if ip == nil {
		t.Fatalf("invalid test IP literal: %q", s)
	}
	return ip
}

const sampleCSSListing = `
<html><body>
<div class="post">
  <a class="title" href="/articles/1">First Article</a>
  <a class="title" href="https://other.example.com/2">Second Article</a>
  <span class="date">2024-01-02</span>
</div>
</body></html>`

func TestCSSStrategy_Fetch_NoOpWithoutScraperConfig(t *testing.T) {
	strategy := NewCSSStrategy(http.DefaultClient)

	fetched, err := strategy.Fetch(context.Background(), &entity.Channel{Link: "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetched.RawItems) != 0 {
		t.Errorf("expected a no-op result with no scraper config, got %+v", fetched)
	}
}

func TestExtractCSSItems_SkipsItemsWithEmptyTitleOrURL(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<html><body>
<div class="post"><a class="title" href="/a">Has both</a></div>
<div class="post"><a class="title"></a></div>
<div class="post"><span class="title">no href</span></div>
</body></html>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	config := &entity.ScraperConfig{ItemSelector: "div.post", TitleSelector: "a.title", URLSelector: "a.title"}
	items := extractCSSItems(doc, config)

	if len(items) != 1 || items[0].Title != "Has both" {
		t.Fatalf("expected exactly one well-formed item, got %+v", items)
	}
}

func TestExtractCSSItems_AppliesURLPrefixToRelativeLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleCSSListing))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	config := &entity.ScraperConfig{
		ItemSelector:  "div.post",
		TitleSelector: "a.title",
		URLSelector:   "a.title",
		DateSelector:  "span.date",
		URLPrefix:     "https://example.com",
	}
	items := extractCSSItems(doc, config)

	if len(items) != 2 {
		t.Fatalf("expected both links extracted, got %+v", items)
	}
	if items[0].Link != "https://example.com/articles/1" {
		t.Errorf("expected the relative link prefixed, got %q", items[0].Link)
	}
	if items[1].Link != "https://other.example.com/2" {
		t.Errorf("expected the absolute link left untouched, got %q", items[1].Link)
	}
}

func TestMakeAbsoluteCSSURL(t *testing.T) {
	cases := []struct {
		url, prefix, want string
	}{
		{"https://a.com/x", "https://ignored.com", "https://a.com/x"},
		{"/x", "https://a.com", "https://a.com/x"},
		{"x", "https://a.com/", "https://a.com/x"},
		{"/x", "", "/x"},
	}
	for _, c := range cases {
		if got := makeAbsoluteCSSURL(c.url, c.prefix); got != c.want {
			t.Errorf("makeAbsoluteCSSURL(%q, %q) = %q, want %q", c.url, c.prefix, got, c.want)
		}
	}
}

func TestParseCSSDate_UsesConfiguredFormatThenFallbacks(t *testing.T) {
	got := parseCSSDate("2024-03-15", "")
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseCSSDate_EmptyStringReturnsNow(t *testing.T) {
	before := time.Now().Add(-time.Second)
	got := parseCSSDate("", "")
	if got.Before(before) {
		t.Errorf("expected an empty date string to fall back to roughly now, got %v", got)
	}
}

func TestValidateScrapeURL_RejectsNonHTTPScheme(t *testing.T) {
	if err := validateScrapeURL("ftp://example.com"); err == nil {
		t.Error("expected an error for a non-http(s) scheme")
	}
}

func TestValidateScrapeURL_RejectsLoopbackAddress(t *testing.T) {
	if err := validateScrapeURL("http://127.0.0.1:8080"); err == nil {
		t.Error("expected an error for a loopback address (SSRF prevention)")
	}
}

func TestIsPrivateScrapeIP(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1": true,
		"10.0.0.5":  true,
		"8.8.8.8":   false,
	}
	for ipStr, want := range cases {
		ip := mustParseIP(t, ipStr)
		if got := isPrivateScrapeIP(ip); got != want {
			t.Errorf("isPrivateScrapeIP(%s) = %v, want %v", ipStr, got, want)
		}
	}
}
