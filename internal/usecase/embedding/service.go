// Package embedding implements C9: computing and persisting the vector
// for a single channel, item, or news text. The vector model itself is
// an opaque collaborator (Provider); this package only owns the
// embed-then-store sequencing and the owner-kind dispatch.
package embedding

import (
	"context"
	"fmt"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/repository"
)

// Provider is the opaque text -> vector<384> collaborator. Concrete
// implementations live under internal/infra/embedder.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service computes an embedding via Provider and stores it through the
// C1 EmbeddingRepository, keyed by owner kind.
type Service struct {
	provider Provider
	repo     repository.EmbeddingRepository
}

func NewService(provider Provider, repo repository.EmbeddingRepository) *Service {
	return &Service{provider: provider, repo: repo}
}

// EmbedItem computes the embedding for text and upserts it against
// itemID. Callers build text as "{title}\n{description}\n{author}"
// per §4.5 step 5.
func (s *Service) EmbedItem(ctx context.Context, itemID int64, text string) error {
	value, err := s.provider.Embed(ctx, text)
	if err != nil {
		return omniverr.Embedding(err)
	}
	if len(value) != entity.EmbeddingDim {
		return omniverr.Embedding(fmt.Errorf("provider returned dimension %d, want %d", len(value), entity.EmbeddingDim))
	}
	if err := s.repo.UpsertItemEmbedding(ctx, itemID, value); err != nil {
		return omniverr.Database(err)
	}
	return nil
}

// EmbedChannel computes the embedding for text and upserts it against
// channelID. Used by the T5 metadata-update path before the channel row
// itself is updated (§4.5: "embedding update happens before the row
// update; row update is skipped if the embedding update fails").
func (s *Service) EmbedChannel(ctx context.Context, channelID int64, text string) error {
	value, err := s.provider.Embed(ctx, text)
	if err != nil {
		return omniverr.Embedding(err)
	}
	if len(value) != entity.EmbeddingDim {
		return omniverr.Embedding(fmt.Errorf("provider returned dimension %d, want %d", len(value), entity.EmbeddingDim))
	}
	if err := s.repo.UpsertChannelEmbedding(ctx, channelID, value); err != nil {
		return omniverr.Database(err)
	}
	return nil
}
