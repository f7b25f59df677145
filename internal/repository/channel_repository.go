// Package repository defines the narrow typed contracts C1 exposes over
// storage. Only the operations the ingestion core actually calls are
// declared here; the rest of the schema is irrelevant to this package.
package repository

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// ChannelFields is the set of updatable Channel columns for
// UpdateChannel; zero-value fields are left unchanged by
// implementations unless explicitly set via the pointer fields.
type ChannelFields struct {
	Title       *string
	Description *string
	ImageURL    *string
	RSSLink     *string
}

// ChannelRepository is the C1 façade over the channel table.
type ChannelRepository interface {
	ListAllChannels(ctx context.Context) ([]*entity.Channel, error)
	// ListDefaultChannels returns channels whose generator does not
	// start with "Omninews".
	ListDefaultChannels(ctx context.Context) ([]*entity.Channel, error)
	// ListWebdriverChannels returns channels whose generator starts
	// with "Omninews" and is not "Omninews_css".
	ListWebdriverChannels(ctx context.Context) ([]*entity.Channel, error)
	GetChannelByID(ctx context.Context, id int64) (*entity.Channel, error)
	ChannelIDByRSSLink(ctx context.Context, rssLink string) (int64, error)
	ChannelIDByHomeLink(ctx context.Context, homeLink string) (int64, error)
	// UpdateChannel reports whether a row was affected.
	UpdateChannel(ctx context.Context, id int64, fields ChannelFields) (bool, error)
}
