package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/repository"
)

// EmbeddingRepo implements repository.EmbeddingRepository using
// pgvector, following the teacher's article_embedding_repo.go
// Upsert/scan idiom.
type EmbeddingRepo struct{ db *sql.DB }

func NewEmbeddingRepo(db *sql.DB) repository.EmbeddingRepository {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) ListEmbeddings(ctx context.Context, kind entity.EmbeddingKind) ([]*entity.Embedding, error) {
	var col string
	switch kind {
	case entity.EmbeddingKindChannel:
		col = "channel_id"
	case entity.EmbeddingKindItem:
		col = "item_id"
	case entity.EmbeddingKindNews:
		col = "news_id"
	default:
		return nil, fmt.Errorf("ListEmbeddings: unknown kind %v", kind)
	}

	query := fmt.Sprintf(`SELECT id, %s, value, source_rank FROM embeddings WHERE %s IS NOT NULL ORDER BY id ASC`, col, col)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListEmbeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*entity.Embedding, 0, 256)
	for rows.Next() {
		var (
			id         int64
			ownerID    int64
			vector     pgvector.Vector
			sourceRank int
		)
		if err := rows.Scan(&id, &ownerID, &vector, &sourceRank); err != nil {
			return nil, fmt.Errorf("ListEmbeddings: scan: %w", err)
		}
		e := &entity.Embedding{ID: id, Value: vector.Slice(), SourceRank: sourceRank}
		switch kind {
		case entity.EmbeddingKindChannel:
			e.ChannelID = &ownerID
		case entity.EmbeddingKindItem:
			e.ItemID = &ownerID
		case entity.EmbeddingKindNews:
			e.NewsID = &ownerID
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmbeddingRepo) UpsertChannelEmbedding(ctx context.Context, channelID int64, value []float32) error {
	const query = `
INSERT INTO embeddings (channel_id, value, source_rank)
VALUES ($1, $2, 0)
ON CONFLICT (channel_id) WHERE channel_id IS NOT NULL
DO UPDATE SET value = EXCLUDED.value`
	_, err := r.db.ExecContext(ctx, query, channelID, pgvector.NewVector(value))
	if err != nil {
		return fmt.Errorf("UpsertChannelEmbedding: %w", err)
	}
	return nil
}

func (r *EmbeddingRepo) UpsertItemEmbedding(ctx context.Context, itemID int64, value []float32) error {
	const query = `
INSERT INTO embeddings (item_id, value, source_rank)
VALUES ($1, $2, 0)
ON CONFLICT (item_id) WHERE item_id IS NOT NULL
DO UPDATE SET value = EXCLUDED.value`
	_, err := r.db.ExecContext(ctx, query, itemID, pgvector.NewVector(value))
	if err != nil {
		return fmt.Errorf("UpsertItemEmbedding: %w", err)
	}
	return nil
}
