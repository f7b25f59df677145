package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/repository"
)

// ItemRepo implements repository.ItemRepository.
type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) CountItems(ctx context.Context, channelID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM items WHERE channel_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, channelID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountItems: %w", err)
	}
	return n, nil
}

func (r *ItemRepo) ItemExistsByLink(ctx context.Context, link string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM items WHERE link = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, link).Scan(&exists); err != nil {
		return false, fmt.Errorf("ItemExistsByLink: %w", err)
	}
	return exists, nil
}

func (r *ItemRepo) InsertItem(ctx context.Context, item *entity.Item) (int64, error) {
	const query = `
INSERT INTO items (channel_id, link, title, description, author, pub_date, rank, image_link)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (link) DO NOTHING
RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		item.ChannelID, item.Link, item.Title, item.Description,
		item.Author, item.PubDate, item.Rank, item.ImageLink,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("InsertItem: %w", alreadyExistsErr())
	}
	if err != nil {
		return 0, fmt.Errorf("InsertItem: %w", err)
	}
	return id, nil
}
