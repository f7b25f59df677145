// Package ingest implements C5: turning strategy-fetched RawItems into
// persisted Items plus their embeddings, and refreshing a Channel's own
// row and embedding from freshly scraped metadata.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/repository"
	"omninews-ingest/internal/usecase/embedding"
	"omninews-ingest/internal/usecase/fetch"
)

const (
	kst                     = 9 * 60 * 60 // seconds, §4.5 step 2
	maxChannelEmbeddingRune = 512
)

// Service implements C5's two paths: generic per-channel item ingestion
// and the T5 channel-metadata refresh.
type Service struct {
	items     repository.ItemRepository
	channels  repository.ChannelRepository
	embedding *embedding.Service

	// AllowFullWalkOnEmpty resolves Open Question 1: when true, a
	// channel with zero stored items walks its entire incoming feed
	// once instead of walking zero items. Off by default to match
	// observed source behavior.
	AllowFullWalkOnEmpty bool
}

func NewService(items repository.ItemRepository, channels repository.ChannelRepository, embeddingSvc *embedding.Service) *Service {
	return &Service{items: items, channels: channels, embedding: embeddingSvc}
}

// Ingest walks the first N raw items (N = current stored item count) in
// feed order, stopping at the first link already on file, and returns
// the items actually inserted (in feed order) so a caller can fan out
// notifications for each one.
func (s *Service) Ingest(ctx context.Context, channel *entity.Channel, rawItems []fetch.RawItem) ([]*entity.Item, error) {
	n, err := s.items.CountItems(ctx, channel.ID)
	if err != nil {
		return nil, omniverr.Database(err)
	}

	walkLimit := n
	if n == 0 && s.AllowFullWalkOnEmpty {
		walkLimit = len(rawItems)
	}
	if walkLimit > len(rawItems) {
		walkLimit = len(rawItems)
	}

	var inserted []*entity.Item
	for i := 0; i < walkLimit; i++ {
		raw := rawItems[i]

		exists, err := s.items.ItemExistsByLink(ctx, raw.Link)
		if err != nil {
			// Open Question 2: a repository error is indistinguishable
			// from "does not exist" to the walk, but is still logged.
			slog.Warn("item existence check failed, treating as not found",
				slog.String("link", raw.Link), slog.Any("error", err))
		}
		if exists {
			break
		}

		pubDate := parsePubDateKST(raw.PubDate)
		description, itemImage := cleanDescriptionAndImage(raw.Description)
		if itemImage == "" {
			itemImage = channel.ImageURL
		}
		description = entity.Truncate(description, entity.MaxDescriptionRunes)

		item := &entity.Item{
			ChannelID:   channel.ID,
			Link:        raw.Link,
			Title:       raw.Title,
			Description: description,
			Author:      raw.Author,
			PubDate:     pubDate,
			ImageLink:   itemImage,
		}

		itemID, err := s.items.InsertItem(ctx, item)
		if err != nil {
			if omniverr.KindOf(err) == omniverr.KindAlreadyExists {
				slog.Warn("duplicate item insert race, skipping",
					slog.String("link", raw.Link), slog.Int64("channel_id", channel.ID))
				continue
			}
			return inserted, omniverr.Database(err)
		}
		item.ID = itemID

		sentence := fmt.Sprintf("%s\n%s\n%s", raw.Title, description, raw.Author)
		if err := s.embedding.EmbedItem(ctx, itemID, sentence); err != nil {
			slog.Warn("item embedding failed, item kept without embedding",
				slog.Int64("item_id", itemID), slog.Any("error", err))
		}

		inserted = append(inserted, item)
	}

	return inserted, nil
}

// UpdateChannelMetadata implements T5's write path: given freshly
// scraped metadata and description (already fetched by the caller via
// whichever of default/og:meta/C3+C4 applies to the channel's
// generator), build the channel embedding text, embed it, and only on
// embedding success update the channel row.
func (s *Service) UpdateChannelMetadata(ctx context.Context, channelID int64, meta fetch.ChannelMetadata, description string) error {
	sentence := buildChannelEmbeddingText(meta.Title, description)

	if err := s.embedding.EmbedChannel(ctx, channelID, sentence); err != nil {
		return err
	}

	fields := repository.ChannelFields{}
	if meta.Title != "" {
		fields.Title = &meta.Title
	}
	if meta.Description != "" {
		fields.Description = &meta.Description
	}
	if meta.ImageURL != "" {
		fields.ImageURL = &meta.ImageURL
	}
	if meta.RSSLink != "" {
		fields.RSSLink = &meta.RSSLink
	}

	if _, err := s.channels.UpdateChannel(ctx, channelID, fields); err != nil {
		return omniverr.Database(err)
	}
	return nil
}

// parsePubDateKST parses an RFC-2822 pub_date and attaches the naive
// +09:00 local form (§4.5 step 2). Unparseable or empty input yields nil.
func parsePubDateKST(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC1123Z, raw)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC1123, raw); err2 == nil {
			t = t2
		} else if t3, err3 := time.Parse(time.RFC3339, raw); err3 == nil {
			t = t3
		} else {
			return nil
		}
	}
	zone := time.FixedZone("KST", kst)
	local := t.In(zone)
	naive := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
	return &naive
}

// cleanDescriptionAndImage strips HTML from a raw description, keeping
// only <h3>/<p> text content, and extracts the first <img src> if it is
// no longer than entity.MaxImageLinkLength. Grounded on
// original_source's extract_html_to_passage_and_image_link.
func cleanDescriptionAndImage(html string) (description string, imageLink string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html), ""
	}

	var parts []string
	doc.Find("h3, p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		description = strings.TrimSpace(doc.Text())
	} else {
		description = strings.Join(parts, " ")
	}

	if src, ok := doc.Find("img").First().Attr("src"); ok && len(src) <= entity.MaxImageLinkLength {
		imageLink = src
	}

	return description, imageLink
}

// hangulAndSafeChars matches alphanumerics, whitespace, the three
// Hangul Unicode ranges (§4.5), and the punctuation the spec keeps.
var hangulAndSafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\x{AC00}-\x{D7A3}\x{1100}-\x{11FF}\x{3130}-\x{318F}.,:]`)
var doubleSpace = regexp.MustCompile(`\s{2,}`)

// buildChannelEmbeddingText implements §4.5's channel embedding text
// rule: "제목: {title}. 내용: {clean_description}", filtered to
// alphanumerics/whitespace/Hangul/".,:", collapsed, trimmed, truncated
// to 512 chars, with ". {title}" appended.
func buildChannelEmbeddingText(title, cleanDescription string) string {
	raw := fmt.Sprintf("제목: %s. 내용: %s", title, cleanDescription)
	filtered := hangulAndSafeChars.ReplaceAllString(raw, "")
	filtered = doubleSpace.ReplaceAllString(filtered, " ")
	filtered = strings.TrimSpace(filtered)
	filtered = entity.Truncate(filtered, maxChannelEmbeddingRune)
	return filtered + ". " + title
}
