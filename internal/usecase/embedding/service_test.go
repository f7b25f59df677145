package embedding

import (
	"context"
	"errors"
	"testing"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
)

type mockProvider struct {
	vector []float32
	err    error
}

func (m *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vector, m.err
}

type mockEmbeddingRepo struct {
	upsertItemErr    error
	upsertChannelErr error
	lastItemID       int64
	lastChannelID    int64
	lastValue        []float32
}

func (m *mockEmbeddingRepo) ListEmbeddings(ctx context.Context, kind entity.EmbeddingKind) ([]*entity.Embedding, error) {
	return nil, nil
}

func (m *mockEmbeddingRepo) UpsertChannelEmbedding(ctx context.Context, channelID int64, value []float32) error {
	m.lastChannelID = channelID
	m.lastValue = value
	return m.upsertChannelErr
}

func (m *mockEmbeddingRepo) UpsertItemEmbedding(ctx context.Context, itemID int64, value []float32) error {
	m.lastItemID = itemID
	m.lastValue = value
	return m.upsertItemErr
}

func validVector() []float32 {
	return make([]float32, entity.EmbeddingDim)
}

func TestEmbedItem_Success(t *testing.T) {
	repo := &mockEmbeddingRepo{}
	svc := NewService(&mockProvider{vector: validVector()}, repo)

	if err := svc.EmbedItem(context.Background(), 42, "title\ndesc\nauthor"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastItemID != 42 {
		t.Errorf("expected upsert against item 42, got %d", repo.lastItemID)
	}
}

func TestEmbedItem_ProviderErrorWrapsAsEmbeddingKind(t *testing.T) {
	svc := NewService(&mockProvider{err: errors.New("upstream down")}, &mockEmbeddingRepo{})

	err := svc.EmbedItem(context.Background(), 1, "text")
	var omnierr *omniverr.Error
	if !errors.As(err, &omnierr) {
		t.Fatalf("expected an *omniverr.Error, got %T", err)
	}
	if omnierr.Kind != omniverr.KindEmbedding {
		t.Errorf("expected KindEmbedding, got %v", omnierr.Kind)
	}
}

func TestEmbedItem_WrongDimensionIsRejected(t *testing.T) {
	svc := NewService(&mockProvider{vector: make([]float32, entity.EmbeddingDim-1)}, &mockEmbeddingRepo{})

	err := svc.EmbedItem(context.Background(), 1, "text")
	var omnierr *omniverr.Error
	if !errors.As(err, &omnierr) || omnierr.Kind != omniverr.KindEmbedding {
		t.Fatalf("expected a KindEmbedding error for a mismatched dimension, got %v", err)
	}
}

func TestEmbedItem_RepoErrorWrapsAsDatabaseKind(t *testing.T) {
	repo := &mockEmbeddingRepo{upsertItemErr: errors.New("conn refused")}
	svc := NewService(&mockProvider{vector: validVector()}, repo)

	err := svc.EmbedItem(context.Background(), 1, "text")
	var omnierr *omniverr.Error
	if !errors.As(err, &omnierr) || omnierr.Kind != omniverr.KindDatabase {
		t.Fatalf("expected a KindDatabase error, got %v", err)
	}
}

func TestEmbedChannel_Success(t *testing.T) {
	repo := &mockEmbeddingRepo{}
	svc := NewService(&mockProvider{vector: validVector()}, repo)

	if err := svc.EmbedChannel(context.Background(), 7, "title\ndesc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastChannelID != 7 {
		t.Errorf("expected upsert against channel 7, got %d", repo.lastChannelID)
	}
}
