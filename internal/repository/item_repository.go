package repository

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// ItemRepository is the C1 façade over the item table.
type ItemRepository interface {
	// CountItems returns the number of items currently persisted for
	// channelID; this is the "N" that drives the walk-first-N
	// ingestion rule.
	CountItems(ctx context.Context, channelID int64) (int, error)
	// ItemExistsByLink reports existence by natural key. Any error is
	// logged by the caller and treated as "does not exist" for dedup
	// purposes (see Open Question 2 in SPEC_FULL.md).
	ItemExistsByLink(ctx context.Context, link string) (bool, error)
	InsertItem(ctx context.Context, item *entity.Item) (int64, error)
}
