package ingest

import (
	"context"
	"errors"
	"testing"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/repository"
	"omninews-ingest/internal/usecase/embedding"
	"omninews-ingest/internal/usecase/fetch"
)

type mockProvider struct {
	vector []float32
	err    error
}

func (m *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.vector != nil {
		return m.vector, nil
	}
	return make([]float32, entity.EmbeddingDim), nil
}

type mockEmbeddingRepo struct {
	upsertItemErr    error
	upsertChannelErr error
}

func (m *mockEmbeddingRepo) ListEmbeddings(ctx context.Context, kind entity.EmbeddingKind) ([]*entity.Embedding, error) {
	return nil, nil
}
func (m *mockEmbeddingRepo) UpsertChannelEmbedding(ctx context.Context, channelID int64, value []float32) error {
	return m.upsertChannelErr
}
func (m *mockEmbeddingRepo) UpsertItemEmbedding(ctx context.Context, itemID int64, value []float32) error {
	return m.upsertItemErr
}

type mockItemRepo struct {
	count        int
	countErr     error
	existingLink map[string]bool
	existsErr    error
	inserted     []*entity.Item
	nextID       int64
	insertErr    error
}

func (m *mockItemRepo) CountItems(ctx context.Context, channelID int64) (int, error) {
	return m.count, m.countErr
}
func (m *mockItemRepo) ItemExistsByLink(ctx context.Context, link string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existingLink[link], nil
}
func (m *mockItemRepo) InsertItem(ctx context.Context, item *entity.Item) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	m.inserted = append(m.inserted, item)
	return m.nextID, nil
}

type mockChannelRepo struct {
	updated       bool
	updateFields  repository.ChannelFields
	updateErr     error
	updateAffects bool
}

func (m *mockChannelRepo) ListAllChannels(ctx context.Context) ([]*entity.Channel, error) { return nil, nil }
func (m *mockChannelRepo) ListDefaultChannels(ctx context.Context) ([]*entity.Channel, error) {
	return nil, nil
}
func (m *mockChannelRepo) ListWebdriverChannels(ctx context.Context) ([]*entity.Channel, error) {
	return nil, nil
}
func (m *mockChannelRepo) GetChannelByID(ctx context.Context, id int64) (*entity.Channel, error) {
	return nil, nil
}
func (m *mockChannelRepo) ChannelIDByRSSLink(ctx context.Context, rssLink string) (int64, error) {
	return 0, nil
}
func (m *mockChannelRepo) ChannelIDByHomeLink(ctx context.Context, homeLink string) (int64, error) {
	return 0, nil
}
func (m *mockChannelRepo) UpdateChannel(ctx context.Context, id int64, fields repository.ChannelFields) (bool, error) {
	m.updated = true
	m.updateFields = fields
	return m.updateAffects, m.updateErr
}

func newTestService(items *mockItemRepo, channels *mockChannelRepo, embedRepo *mockEmbeddingRepo, provider *mockProvider) *Service {
	embeddingSvc := embedding.NewService(provider, embedRepo)
	return NewService(items, channels, embeddingSvc)
}

func TestIngest_WalksUpToStoredCountAndStopsAtFirstExisting(t *testing.T) {
	items := &mockItemRepo{count: 2, existingLink: map[string]bool{"https://a/2": true}}
	svc := newTestService(items, &mockChannelRepo{}, &mockEmbeddingRepo{}, &mockProvider{})

	raw := []fetch.RawItem{
		{Link: "https://a/1", Title: "one"},
		{Link: "https://a/2", Title: "two"}, // already exists: walk stops here
		{Link: "https://a/3", Title: "three"},
	}

	inserted, err := svc.Ingest(context.Background(), &entity.Channel{ID: 1}, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 1 || inserted[0].Link != "https://a/1" {
		t.Fatalf("expected only the first new item inserted, got %+v", inserted)
	}
}

func TestIngest_ZeroStoredWithoutAllowFullWalkInsertsNothing(t *testing.T) {
	items := &mockItemRepo{count: 0}
	svc := newTestService(items, &mockChannelRepo{}, &mockEmbeddingRepo{}, &mockProvider{})

	raw := []fetch.RawItem{{Link: "https://a/1", Title: "one"}}

	inserted, err := svc.Ingest(context.Background(), &entity.Channel{ID: 1}, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 0 {
		t.Errorf("expected no items inserted with AllowFullWalkOnEmpty=false and 0 stored items, got %d", len(inserted))
	}
}

func TestIngest_AllowFullWalkOnEmptyWalksEntireFeed(t *testing.T) {
	items := &mockItemRepo{count: 0}
	svc := newTestService(items, &mockChannelRepo{}, &mockEmbeddingRepo{}, &mockProvider{})
	svc.AllowFullWalkOnEmpty = true

	raw := []fetch.RawItem{
		{Link: "https://a/1", Title: "one"},
		{Link: "https://a/2", Title: "two"},
	}

	inserted, err := svc.Ingest(context.Background(), &entity.Channel{ID: 1}, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 2 {
		t.Errorf("expected both items inserted, got %d", len(inserted))
	}
}

func TestIngest_EmbeddingFailureStillKeepsTheItem(t *testing.T) {
	items := &mockItemRepo{count: 1}
	svc := newTestService(items, &mockChannelRepo{}, &mockEmbeddingRepo{}, &mockProvider{err: errors.New("provider down")})

	raw := []fetch.RawItem{{Link: "https://a/1", Title: "one"}}

	inserted, err := svc.Ingest(context.Background(), &entity.Channel{ID: 1}, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected the item to be kept despite the embedding failure, got %d", len(inserted))
	}
}

func TestIngest_DescriptionFallsBackToChannelImage(t *testing.T) {
	items := &mockItemRepo{count: 1}
	svc := newTestService(items, &mockChannelRepo{}, &mockEmbeddingRepo{}, &mockProvider{})

	raw := []fetch.RawItem{{Link: "https://a/1", Title: "one", Description: "<p>no image here</p>"}}
	channel := &entity.Channel{ID: 1, ImageURL: "https://a/channel.png"}

	inserted, err := svc.Ingest(context.Background(), channel, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted[0].ImageLink != "https://a/channel.png" {
		t.Errorf("expected the item to fall back to the channel image, got %q", inserted[0].ImageLink)
	}
}

func TestUpdateChannelMetadata_SkipsRowUpdateWhenEmbeddingFails(t *testing.T) {
	channels := &mockChannelRepo{}
	svc := newTestService(&mockItemRepo{}, channels, &mockEmbeddingRepo{}, &mockProvider{err: errors.New("provider down")})

	err := svc.UpdateChannelMetadata(context.Background(), 1, fetch.ChannelMetadata{Title: "new title"}, "desc")
	if err == nil {
		t.Fatal("expected the embedding failure to propagate")
	}
	if channels.updated {
		t.Error("expected the channel row update to be skipped when the embedding fails")
	}
}

func TestUpdateChannelMetadata_UpdatesOnlyNonEmptyFields(t *testing.T) {
	channels := &mockChannelRepo{updateAffects: true}
	svc := newTestService(&mockItemRepo{}, channels, &mockEmbeddingRepo{}, &mockProvider{})

	err := svc.UpdateChannelMetadata(context.Background(), 1, fetch.ChannelMetadata{Title: "new title"}, "desc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channels.updateFields.Title == nil || *channels.updateFields.Title != "new title" {
		t.Error("expected Title to be set on the update")
	}
	if channels.updateFields.Description != nil {
		t.Error("expected Description to stay nil when meta.Description is empty")
	}
}

func TestBuildChannelEmbeddingText_FiltersAndAppendsTitle(t *testing.T) {
	text := buildChannelEmbeddingText("Example Feed", "hello <b>world</b>!!")
	if text == "" {
		t.Fatal("expected non-empty embedding text")
	}
	if text[len(text)-len("Example Feed"):] != "Example Feed" {
		t.Errorf("expected the text to end with the title, got %q", text)
	}
}

func TestCleanDescriptionAndImage_ExtractsParagraphTextAndFirstImage(t *testing.T) {
	html := `<div><h3>Headline</h3><p>Body text</p><img src="https://a/img.png"></div>`
	desc, img := cleanDescriptionAndImage(html)

	if desc != "Headline Body text" {
		t.Errorf("expected joined h3/p text, got %q", desc)
	}
	if img != "https://a/img.png" {
		t.Errorf("expected the image src extracted, got %q", img)
	}
}

func TestParsePubDateKST_UnparseableReturnsNil(t *testing.T) {
	if got := parsePubDateKST("not a date"); got != nil {
		t.Errorf("expected nil for an unparseable date, got %v", got)
	}
}

func TestParsePubDateKST_ValidRFC1123Z(t *testing.T) {
	got := parsePubDateKST("Mon, 02 Jan 2006 15:04:05 -0700")
	if got == nil {
		t.Fatal("expected a parsed time")
	}
}
