// Package fetch implements C4: per-channel fetch strategies that yield
// a normalized FetchedChannel regardless of the underlying transport
// (direct HTTP feed parse, browser automation, platform-specific
// scrape).
package fetch

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// Strategy discriminates the transport a channel's Generator maps to.
type Strategy int

const (
	StrategyDefault Strategy = iota
	StrategyWebdriverDefault
	StrategyInstagram
	StrategyCSS
)

// ParseStrategy maps a Channel.Generator value to its Strategy. Unknown
// values fall back to StrategyDefault, matching
// entity.NormalizedGenerator.
func ParseStrategy(generator entity.Generator) Strategy {
	switch entity.NormalizedGenerator(string(generator)) {
	case entity.GeneratorOmninewsDefault:
		return StrategyWebdriverDefault
	case entity.GeneratorOmninewsInstagram:
		return StrategyInstagram
	case entity.GeneratorOmninewsCSS:
		return StrategyCSS
	default:
		return StrategyDefault
	}
}

// RawItem is an unpersisted feed entry as yielded by any strategy.
// PubDate is kept as a raw RFC-2822-equivalent string so every strategy
// (including Instagram, whose native timestamp is Unix seconds)
// produces a uniform shape for C5 to parse.
type RawItem struct {
	Link        string
	Title       string
	Description string
	Author      string
	PubDate     string
	ImageLink   string
}

// ChannelMetadata is the subset of Channel fields a strategy can refresh
// during the T5 metadata-update path.
type ChannelMetadata struct {
	Title       string
	Description string
	ImageURL    string
	RSSLink     string
}

// FetchedChannel is the normalized result of any fetch strategy.
type FetchedChannel struct {
	Metadata ChannelMetadata
	RawItems []RawItem
}

// FetchStrategy is the interface every C4 adapter implements.
type FetchStrategy interface {
	Fetch(ctx context.Context, channel *entity.Channel) (FetchedChannel, error)
}

// Dispatcher selects and runs the strategy matching channel.Generator.
type Dispatcher struct {
	defaultStrategy   FetchStrategy
	webdriverStrategy FetchStrategy
	instagramStrategy FetchStrategy
	cssStrategy       FetchStrategy
}

func NewDispatcher(defaultS, webdriverS, instagramS, cssS FetchStrategy) *Dispatcher {
	return &Dispatcher{
		defaultStrategy:   defaultS,
		webdriverStrategy: webdriverS,
		instagramStrategy: instagramS,
		cssStrategy:       cssS,
	}
}

func (d *Dispatcher) Fetch(ctx context.Context, channel *entity.Channel) (FetchedChannel, error) {
	switch ParseStrategy(channel.Generator) {
	case StrategyWebdriverDefault:
		return d.webdriverStrategy.Fetch(ctx, channel)
	case StrategyInstagram:
		return d.instagramStrategy.Fetch(ctx, channel)
	case StrategyCSS:
		return d.cssStrategy.Fetch(ctx, channel)
	default:
		return d.defaultStrategy.Fetch(ctx, channel)
	}
}
