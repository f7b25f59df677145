package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/resilience/circuitbreaker"
	"omninews-ingest/internal/resilience/retry"
)

// DefaultStrategy implements StrategyDefault: HTTP GET Channel.RSSLink,
// parse RSS/Atom via gofeed, return the parsed entries as RawItems.
// Adapted from the teacher's internal/infra/scraper/rss.go, which used
// the same circuit-breaker/retry-wrapped gofeed client against the
// generic FeedItem shape.
type DefaultStrategy struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewDefaultStrategy(client *http.Client) *DefaultStrategy {
	return &DefaultStrategy{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

func (s *DefaultStrategy) Fetch(ctx context.Context, channel *entity.Channel) (FetchedChannel, error) {
	if channel.RSSLink == nil || *channel.RSSLink == "" {
		return FetchedChannel{}, omniverr.NotFound("channel has no rss_link")
	}
	feedURL := *channel.RSSLink

	var result FetchedChannel

	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		cbResult, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return s.doFetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", feedURL),
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

func (s *DefaultStrategy) doFetch(ctx context.Context, feedURL string) (FetchedChannel, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "OmninewsIngestBot"
	fp.Client = s.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return FetchedChannel{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		author := ""
		if it.Author != nil {
			author = it.Author.Name
		}

		pubDate := it.Published
		imageLink := ""
		if it.Image != nil {
			imageLink = it.Image.URL
		}

		items = append(items, RawItem{
			Link:        it.Link,
			Title:       it.Title,
			Description: it.Description,
			Author:      author,
			PubDate:     pubDate,
			ImageLink:   imageLink,
		})
	}

	meta := ChannelMetadata{
		Title:   feed.Title,
		RSSLink: feedURL,
	}
	if feed.Description != "" {
		meta.Description = feed.Description
	}
	if feed.Image != nil {
		meta.ImageURL = feed.Image.URL
	}

	return FetchedChannel{Metadata: meta, RawItems: items}, nil
}
