package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/resilience/circuitbreaker"
	"omninews-ingest/internal/resilience/retry"
)

const cssScraperMaxBodySize = 10 * 1024 * 1024 // 10MB

// cssConfigKey is the context key a caller uses to supply the
// per-channel entity.ScraperConfig that CSSStrategy needs. Generalized
// from the teacher's scraper.ScraperConfigKey, which served the same
// role for its Webflow/NextJS/Remix adapters.
type cssConfigKey struct{}

// WithScraperConfig attaches cfg to ctx for a subsequent CSSStrategy.Fetch call.
func WithScraperConfig(ctx context.Context, cfg *entity.ScraperConfig) context.Context {
	return context.WithValue(ctx, cssConfigKey{}, cfg)
}

func scraperConfigFromContext(ctx context.Context) *entity.ScraperConfig {
	cfg, _ := ctx.Value(cssConfigKey{}).(*entity.ScraperConfig)
	return cfg
}

// CSSStrategy implements StrategyCSS (Omninews_css). §4.4 reserves this
// generator as a no-op when no selector configuration is supplied; when
// a caller attaches an entity.ScraperConfig via WithScraperConfig, it
// performs the real CSS-selector scrape this reservation was named
// for, adapted from the teacher's WebflowScraper.
type CSSStrategy struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config

	// contentFetcher is optional (§4.4, go-shiori/go-readability):
	// CSS-selector scraping has no article body selector of its own,
	// so when set, each item's link is fetched and run through
	// Readability to fill in Description. A nil contentFetcher (the
	// default) leaves Description empty, matching the teacher's
	// WebflowScraper, which never populated article bodies either.
	contentFetcher ContentFetcher
}

func NewCSSStrategy(client *http.Client) *CSSStrategy {
	return &CSSStrategy{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.WebScraperConfig(),
	}
}

// WithContentFetcher enables per-item full-article content enhancement.
func (s *CSSStrategy) WithContentFetcher(contentFetcher ContentFetcher) *CSSStrategy {
	s.contentFetcher = contentFetcher
	return s
}

func (s *CSSStrategy) Fetch(ctx context.Context, channel *entity.Channel) (FetchedChannel, error) {
	config := scraperConfigFromContext(ctx)
	if config == nil {
		return FetchedChannel{}, nil
	}

	var result FetchedChannel

	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		cbResult, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return s.doFetch(ctx, channel.Link, config)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("css scraper circuit breaker open, request rejected",
					slog.String("service", "css-scraper"),
					slog.String("url", channel.Link),
					slog.String("state", s.circuitBreaker.State().String()))
				return err
			}
			return err
		}
		result = cbResult.(FetchedChannel)
		return nil
	})
	if retryErr != nil {
		return FetchedChannel{}, omniverr.ParseRSSChannel(retryErr)
	}
	return result, nil
}

func (s *CSSStrategy) doFetch(ctx context.Context, sourceURL string, config *entity.ScraperConfig) (FetchedChannel, error) {
	if err := validateScrapeURL(sourceURL); err != nil {
		return FetchedChannel{}, fmt.Errorf("URL validation failed: %w", err)
	}

	doc, err := s.fetchHTML(ctx, sourceURL)
	if err != nil {
		return FetchedChannel{}, fmt.Errorf("fetch HTML failed: %w", err)
	}

	items := extractCSSItems(doc, config)
	if len(items) == 0 {
		return FetchedChannel{}, fmt.Errorf("no items found with selector: %s", config.ItemSelector)
	}

	if s.contentFetcher != nil {
		s.enhanceWithContent(ctx, items)
	}

	return FetchedChannel{RawItems: items}, nil
}

// enhanceWithContent fills in each item's Description by fetching and
// extracting its linked article. A failure leaves that item's
// Description empty rather than failing the whole scrape.
func (s *CSSStrategy) enhanceWithContent(ctx context.Context, items []RawItem) {
	for i := range items {
		content, err := s.contentFetcher.FetchContent(ctx, items[i].Link)
		if err != nil {
			slog.Debug("css content enhancement failed, leaving description empty",
				slog.String("url", items[i].Link), slog.Any("error", err))
			continue
		}
		items[i].Description = content
	}
}

func (s *CSSStrategy) fetchHTML(ctx context.Context, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "OmninewsIngestBot")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	limitedReader := io.LimitReader(resp.Body, cssScraperMaxBodySize)

	doc, err := goquery.NewDocumentFromReader(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

func extractCSSItems(doc *goquery.Document, config *entity.ScraperConfig) []RawItem {
	var items []RawItem

	doc.Find(config.ItemSelector).Each(func(i int, itemEl *goquery.Selection) {
		title := strings.TrimSpace(itemEl.Find(config.TitleSelector).Text())
		if title == "" {
			slog.Debug("skipping css item with empty title", slog.Int("index", i))
			return
		}

		itemURL := ""
		if config.URLSelector != "" {
			if href, exists := itemEl.Find(config.URLSelector).Attr("href"); exists {
				itemURL = strings.TrimSpace(href)
			}
		}
		if itemURL == "" {
			slog.Debug("skipping css item with empty URL", slog.Int("index", i), slog.String("title", title))
			return
		}
		itemURL = makeAbsoluteCSSURL(itemURL, config.URLPrefix)

		dateStr := strings.TrimSpace(itemEl.Find(config.DateSelector).Text())
		publishedAt := parseCSSDate(dateStr, config.DateFormat)

		items = append(items, RawItem{
			Link:    itemURL,
			Title:   title,
			PubDate: publishedAt.Format(time.RFC1123Z),
		})
	})

	return items
}

// validateScrapeURL rejects non-http(s) schemes and private/loopback
// targets (SSRF prevention), mirroring the teacher's scraper guard.
func validateScrapeURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s (only http/https allowed)", u.Scheme)
	}

	ips, err := net.LookupIP(u.Hostname())
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}
	for _, ip := range ips {
		if isPrivateScrapeIP(ip) {
			return fmt.Errorf("private IP address detected: %s (SSRF prevention)", ip)
		}
	}
	return nil
}

func isPrivateScrapeIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

func parseCSSDate(dateStr, format string) time.Time {
	if dateStr == "" {
		return time.Now()
	}
	if format == "" {
		format = "Jan 2, 2006"
	}
	if t, err := time.Parse(format, dateStr); err == nil {
		return t
	}

	fallbacks := []string{
		"2006-01-02",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		"Jan 2, 2006",
		"January 2, 2006",
	}
	for _, layout := range fallbacks {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t
		}
	}

	slog.Warn("failed to parse css item date, using current time",
		slog.String("date_str", dateStr), slog.String("format", format))
	return time.Now()
}

func makeAbsoluteCSSURL(urlStr, prefix string) string {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr
	}
	if prefix == "" {
		return urlStr
	}
	prefix = strings.TrimRight(prefix, "/")
	urlStr = strings.TrimLeft(urlStr, "/")
	return prefix + "/" + urlStr
}
