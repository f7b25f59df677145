package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/infra/webdriver"
	"omninews-ingest/internal/usecase/discovery"
)

const webdriverReadyWait = 5 * time.Second

// WebdriverStrategy implements StrategyWebdriverDefault
// (Omninews_default): acquire a C2 session, run C3 against Channel.Link
// to find the feed URL, then fetch the feed body via an in-browser
// fetch() with credentials so cookie/bot-check state from the page
// navigation carries over.
type WebdriverStrategy struct {
	pool          *webdriver.Pool
	acquireWait   time.Duration
}

func NewWebdriverStrategy(pool *webdriver.Pool, acquireWait time.Duration) *WebdriverStrategy {
	if acquireWait <= 0 {
		acquireWait = 10 * time.Second
	}
	return &WebdriverStrategy{pool: pool, acquireWait: acquireWait}
}

func (s *WebdriverStrategy) Fetch(ctx context.Context, channel *entity.Channel) (FetchedChannel, error) {
	session, err := s.pool.Acquire(ctx, webdriver.WaitTimeout(s.acquireWait))
	if err != nil {
		return FetchedChannel{}, err
	}
	poisoned := false
	defer func() {
		if poisoned {
			session.Poison()
		} else {
			session.Release()
		}
	}()

	candidates, err := discovery.Discover(ctx, session, channel.Link)
	if err != nil {
		poisoned = true
		return FetchedChannel{}, err
	}
	rssLink, ok := discovery.Select(candidates)
	if !ok {
		return FetchedChannel{}, omniverr.NotFound("no feed discovered for " + channel.Link)
	}

	page, err := session.Page(ctx)
	if err != nil {
		poisoned = true
		return FetchedChannel{}, omniverr.WebDriver(err)
	}
	defer page.Close()

	if err := webdriver.WaitReady(page, channel.Link, webdriverReadyWait); err != nil {
		poisoned = true
		return FetchedChannel{}, omniverr.WebDriver(err)
	}

	const js = `(url) => fetch(url, {credentials: 'include', cache: 'no-store'}).then(async r => ({status: r.status, contentType: r.headers.get('content-type') || '', body: await r.text()}))`
	result, err := page.Eval(js, rssLink)
	if err != nil {
		return FetchedChannel{}, omniverr.WebDriver(err)
	}

	var resp struct {
		Status      int    `json:"status"`
		ContentType string `json:"contentType"`
		Body        string `json:"body"`
	}
	if err := result.Value.Unmarshal(&resp); err != nil {
		return FetchedChannel{}, omniverr.ParseRSSChannel(err)
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return FetchedChannel{}, omniverr.WebDriverNotFound()
	}
	if strings.Contains(resp.ContentType, "text/html") && strings.Contains(resp.Body, "Attention Required") {
		return FetchedChannel{}, omniverr.WebDriverNotFound()
	}

	fetched, err := parseFeedBody(resp.Body)
	if err != nil {
		return FetchedChannel{}, omniverr.ParseRSSChannel(err)
	}
	fetched.Metadata.RSSLink = rssLink
	return fetched, nil
}

// parseFeedBody parses a raw feed body string (already fetched in-browser,
// so no network call here). It decodes an RSS 2.0 document only: the
// channel title and each item's title, link, description, author and
// pubDate. An Atom document is not decoded and yields no items.
type rssXML struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			Author      string `xml:"author"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parseFeedBody(body string) (FetchedChannel, error) {
	var parsed rssXML
	if err := xml.Unmarshal([]byte(body), &parsed); err != nil {
		return FetchedChannel{}, fmt.Errorf("parse webdriver-fetched feed body: %w", err)
	}

	items := make([]RawItem, 0, len(parsed.Channel.Items))
	for _, it := range parsed.Channel.Items {
		items = append(items, RawItem{
			Link:        it.Link,
			Title:       it.Title,
			Description: it.Description,
			Author:      it.Author,
			PubDate:     it.PubDate,
		})
	}

	return FetchedChannel{
		Metadata: ChannelMetadata{Title: parsed.Channel.Title},
		RawItems: items,
	}, nil
}
