// Package postgres implements the C1 repository façade over a
// Postgres/pgvector schema, following the teacher's raw-SQL,
// $N-placeholder, sql.ErrNoRows-to-nil style.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/repository"
)

// ChannelRepo implements repository.ChannelRepository.
type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, title, link, rss_link, description, image_url, language, rank, generator`

func scanChannel(row interface{ Scan(...any) error }) (*entity.Channel, error) {
	var c entity.Channel
	var generator string
	if err := row.Scan(&c.ID, &c.Title, &c.Link, &c.RSSLink, &c.Description, &c.ImageURL, &c.Language, &c.Rank, &generator); err != nil {
		return nil, err
	}
	c.Generator = entity.Generator(generator)
	return &c, nil
}

func (r *ChannelRepo) listWhere(ctx context.Context, where string, args ...any) ([]*entity.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels %s ORDER BY id ASC`, channelColumns, where)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listWhere: %w", err)
	}
	defer func() { _ = rows.Close() }()

	channels := make([]*entity.Channel, 0, 50)
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("listWhere: scan: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (r *ChannelRepo) ListAllChannels(ctx context.Context) ([]*entity.Channel, error) {
	return r.listWhere(ctx, "")
}

func (r *ChannelRepo) ListDefaultChannels(ctx context.Context) ([]*entity.Channel, error) {
	return r.listWhere(ctx, `WHERE generator NOT LIKE 'Omninews%'`)
}

func (r *ChannelRepo) ListWebdriverChannels(ctx context.Context) ([]*entity.Channel, error) {
	return r.listWhere(ctx, `WHERE generator LIKE 'Omninews%' AND generator != 'Omninews_css'`)
}

func (r *ChannelRepo) GetChannelByID(ctx context.Context, id int64) (*entity.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE id = $1 LIMIT 1`, channelColumns)
	c, err := scanChannel(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetChannelByID: %w", err)
	}
	return c, nil
}

func (r *ChannelRepo) ChannelIDByRSSLink(ctx context.Context, rssLink string) (int64, error) {
	const query = `SELECT id FROM channels WHERE rss_link = $1 LIMIT 1`
	var id int64
	err := r.db.QueryRowContext(ctx, query, rssLink).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ChannelIDByRSSLink: %w", err)
	}
	return id, nil
}

func (r *ChannelRepo) ChannelIDByHomeLink(ctx context.Context, homeLink string) (int64, error) {
	const query = `SELECT id FROM channels WHERE link = $1 LIMIT 1`
	var id int64
	err := r.db.QueryRowContext(ctx, query, homeLink).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ChannelIDByHomeLink: %w", err)
	}
	return id, nil
}

func (r *ChannelRepo) UpdateChannel(ctx context.Context, id int64, fields repository.ChannelFields) (bool, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	argN := 1

	if fields.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argN))
		args = append(args, *fields.Title)
		argN++
	}
	if fields.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argN))
		args = append(args, *fields.Description)
		argN++
	}
	if fields.ImageURL != nil {
		sets = append(sets, fmt.Sprintf("image_url = $%d", argN))
		args = append(args, *fields.ImageURL)
		argN++
	}
	if fields.RSSLink != nil {
		sets = append(sets, fmt.Sprintf("rss_link = $%d", argN))
		args = append(args, *fields.RSSLink)
		argN++
	}
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE channels SET %s WHERE id = $%d`, strings.Join(sets, ", "), argN)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("UpdateChannel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("UpdateChannel: %w", err)
	}
	return n > 0, nil
}
