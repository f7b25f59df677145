package repository

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// EmbeddingRepository is the C1 façade over the embedding table.
type EmbeddingRepository interface {
	ListEmbeddings(ctx context.Context, kind entity.EmbeddingKind) ([]*entity.Embedding, error)
	UpsertChannelEmbedding(ctx context.Context, channelID int64, value []float32) error
	UpsertItemEmbedding(ctx context.Context, itemID int64, value []float32) error
}
