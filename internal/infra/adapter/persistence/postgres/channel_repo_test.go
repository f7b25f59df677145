package postgres_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omninews-ingest/internal/infra/adapter/persistence/postgres"
	"omninews-ingest/internal/repository"
)

func channelRow(rssLink *string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "link", "rss_link", "description", "image_url", "language", "rank", "generator",
	}).AddRow(int64(1), "Example Blog", "https://example.com", rssLink, "desc", "https://example.com/img.png", "en", 10, "default")
}

func TestChannelRepo_GetChannelByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rss := "https://example.com/rss"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, link, rss_link")).
		WithArgs(int64(1)).
		WillReturnRows(channelRow(&rss))

	repo := postgres.NewChannelRepo(db)
	got, err := repo.GetChannelByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Example Blog", got.Title)
	assert.Equal(t, "default", string(got.Generator))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelRepo_GetChannelByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, link, rss_link")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "link", "rss_link", "description", "image_url", "language", "rank", "generator"}))

	repo := postgres.NewChannelRepo(db)
	got, err := repo.GetChannelByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChannelRepo_ListDefaultChannels_FiltersOmninews(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE generator NOT LIKE 'Omninews%'")).
		WillReturnRows(channelRow(nil))

	repo := postgres.NewChannelRepo(db)
	got, err := repo.ListDefaultChannels(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestChannelRepo_UpdateChannel_NoFieldsNoop(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := postgres.NewChannelRepo(db)
	affected, err := repo.UpdateChannel(context.Background(), 1, repository.ChannelFields{})
	require.NoError(t, err)
	assert.False(t, affected)
}
