package scheduler

import (
	"context"
	"testing"
	"time"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/repository"
	"omninews-ingest/internal/usecase/embedding"
	"omninews-ingest/internal/usecase/fetch"
	"omninews-ingest/internal/usecase/ingest"
)

type fakeStrategy struct {
	result fetch.FetchedChannel
	err    error
}

func (f *fakeStrategy) Fetch(ctx context.Context, channel *entity.Channel) (fetch.FetchedChannel, error) {
	return f.result, f.err
}

type fakeChannelRepoForInfoUpdate struct {
	defaultChannels   []*entity.Channel
	webdriverChannels []*entity.Channel
	defaultErr        error
	webdriverErr      error
	updated           []int64
}

func (f *fakeChannelRepoForInfoUpdate) ListAllChannels(ctx context.Context) ([]*entity.Channel, error) {
	return nil, nil
}
func (f *fakeChannelRepoForInfoUpdate) ListDefaultChannels(ctx context.Context) ([]*entity.Channel, error) {
	return f.defaultChannels, f.defaultErr
}
func (f *fakeChannelRepoForInfoUpdate) ListWebdriverChannels(ctx context.Context) ([]*entity.Channel, error) {
	return f.webdriverChannels, f.webdriverErr
}
func (f *fakeChannelRepoForInfoUpdate) GetChannelByID(ctx context.Context, id int64) (*entity.Channel, error) {
	return nil, nil
}
func (f *fakeChannelRepoForInfoUpdate) ChannelIDByRSSLink(ctx context.Context, rssLink string) (int64, error) {
	return 0, nil
}
func (f *fakeChannelRepoForInfoUpdate) ChannelIDByHomeLink(ctx context.Context, homeLink string) (int64, error) {
	return 0, nil
}
func (f *fakeChannelRepoForInfoUpdate) UpdateChannel(ctx context.Context, id int64, fields repository.ChannelFields) (bool, error) {
	f.updated = append(f.updated, id)
	return true, nil
}

type fakeItemRepoForInfoUpdate struct{}

func (f *fakeItemRepoForInfoUpdate) CountItems(ctx context.Context, channelID int64) (int, error) {
	return 0, nil
}
func (f *fakeItemRepoForInfoUpdate) ItemExistsByLink(ctx context.Context, link string) (bool, error) {
	return false, nil
}
func (f *fakeItemRepoForInfoUpdate) InsertItem(ctx context.Context, item *entity.Item) (int64, error) {
	return 1, nil
}

type fakeEmbeddingRepoForInfoUpdate struct{}

func (f *fakeEmbeddingRepoForInfoUpdate) ListEmbeddings(ctx context.Context, kind entity.EmbeddingKind) ([]*entity.Embedding, error) {
	return nil, nil
}
func (f *fakeEmbeddingRepoForInfoUpdate) UpsertChannelEmbedding(ctx context.Context, channelID int64, value []float32) error {
	return nil
}
func (f *fakeEmbeddingRepoForInfoUpdate) UpsertItemEmbedding(ctx context.Context, itemID int64, value []float32) error {
	return nil
}

type fakeProviderForInfoUpdate struct{}

func (f *fakeProviderForInfoUpdate) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, entity.EmbeddingDim), nil
}

func TestInfoUpdateTrack_Tick_UpdatesDefaultAndWebdriverChannels(t *testing.T) {
	strategy := &fakeStrategy{result: fetch.FetchedChannel{
		Metadata: fetch.ChannelMetadata{Title: "refreshed title", Description: "refreshed desc"},
	}}
	dispatcher := fetch.NewDispatcher(strategy, strategy, strategy, strategy)

	channels := &fakeChannelRepoForInfoUpdate{
		defaultChannels:   []*entity.Channel{{ID: 1, Generator: entity.Generator("rss")}},
		webdriverChannels: []*entity.Channel{{ID: 2, Generator: entity.GeneratorOmninewsDefault}},
	}

	embeddingSvc := embedding.NewService(&fakeProviderForInfoUpdate{}, &fakeEmbeddingRepoForInfoUpdate{})
	ingestSvc := ingest.NewService(&fakeItemRepoForInfoUpdate{}, channels, embeddingSvc)

	deps := &Deps{
		Config:     &Config{InfoUpdateInterval: time.Hour},
		Metrics:    testMetrics(),
		Logger:     discardLogger(),
		Channels:   channels,
		Dispatcher: dispatcher,
		Ingest:     ingestSvc,
	}
	track := NewInfoUpdateTrack(deps)

	track.tick(context.Background(), discardLogger())

	if len(channels.updated) != 2 {
		t.Errorf("expected both channels to be refreshed, got %d updates", len(channels.updated))
	}
}

func TestInfoUpdateTrack_Tick_ContinuesPastAFetchFailure(t *testing.T) {
	strategy := &fakeStrategy{err: context.DeadlineExceeded}
	dispatcher := fetch.NewDispatcher(strategy, strategy, strategy, strategy)

	embeddingSvc := embedding.NewService(&fakeProviderForInfoUpdate{}, &fakeEmbeddingRepoForInfoUpdate{})
	ingestSvc := ingest.NewService(&fakeItemRepoForInfoUpdate{}, &fakeChannelRepoForInfoUpdate{}, embeddingSvc)

	channels := &fakeChannelRepoForInfoUpdate{
		defaultChannels: []*entity.Channel{{ID: 1, Generator: entity.Generator("rss")}},
	}

	deps := &Deps{
		Config:     &Config{InfoUpdateInterval: time.Hour},
		Metrics:    testMetrics(),
		Logger:     discardLogger(),
		Channels:   channels,
		Dispatcher: dispatcher,
		Ingest:     ingestSvc,
	}
	track := NewInfoUpdateTrack(deps)

	// Must not panic or block despite every fetch failing.
	track.tick(context.Background(), discardLogger())

	if len(channels.updated) != 0 {
		t.Errorf("expected no updates when every fetch fails, got %d", len(channels.updated))
	}
}

func TestInfoUpdateTrack_Name(t *testing.T) {
	deps := &Deps{Config: &Config{InfoUpdateInterval: time.Hour}, Metrics: testMetrics(), Logger: discardLogger()}
	track := NewInfoUpdateTrack(deps)
	if track.Name() != "rss_info_update" {
		t.Errorf("expected name %q, got %q", "rss_info_update", track.Name())
	}
}
