// Package annindex orchestrates C7: loading each embedding kind,
// building an annoy.Index over it, and persisting the result.
package annindex

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/infra/annoy"
	"omninews-ingest/internal/repository"
)

// RunRecorder receives a (track, status, duration) observation for
// each per-kind build. Satisfied by *scheduler.Metrics.RecordRun
// without annindex importing the scheduler package (which in turn
// drives annindex, and would otherwise cycle).
type RunRecorder interface {
	RecordRun(track, status string, seconds float64)
}

// Service builds and persists the three ANN index files.
type Service struct {
	embeddings repository.EmbeddingRepository
	resDir     string
	metrics    RunRecorder
}

func NewService(embeddings repository.EmbeddingRepository, resourcesDir string, metrics RunRecorder) *Service {
	return &Service{embeddings: embeddings, resDir: resourcesDir, metrics: metrics}
}

var kindFileNames = map[entity.EmbeddingKind]string{
	entity.EmbeddingKindChannel: "channel_embeddings.ann",
	entity.EmbeddingKindItem:    "rss_embeddings.ann",
	entity.EmbeddingKindNews:    "news_embeddings.ann",
}

// BuildAll runs the four-step build (list, skip-empty, build, atomic
// save) for Channel, Item, and News embeddings in turn (§4.7).
func (s *Service) BuildAll(ctx context.Context) error {
	for _, kind := range []entity.EmbeddingKind{entity.EmbeddingKindChannel, entity.EmbeddingKindItem, entity.EmbeddingKindNews} {
		start := time.Now()
		err := s.buildOne(ctx, kind)
		seconds := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "failure"
			slog.Error("ann build failed", slog.String("kind", kind.String()), slog.Any("error", err))
		}
		if s.metrics != nil {
			s.metrics.RecordRun("save_ann_"+kind.String(), status, seconds)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) buildOne(ctx context.Context, kind entity.EmbeddingKind) error {
	embeddings, err := s.embeddings.ListEmbeddings(ctx, kind)
	if err != nil {
		return fmt.Errorf("list embeddings for %s: %w", kind.String(), err)
	}

	if len(embeddings) == 0 {
		slog.Info("no embeddings found, skipping ann build", slog.String("kind", kind.String()))
		return nil
	}

	ids := make([]int64, len(embeddings))
	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		ids[i] = e.ID
		vectors[i] = e.Value
	}

	slog.Info("building ann index", slog.String("kind", kind.String()), slog.Int("count", len(embeddings)), slog.Int("dims", annoy.Dims))

	index, err := annoy.Build(ids, vectors)
	if err != nil {
		return fmt.Errorf("build %s index: %w", kind.String(), err)
	}

	path := filepath.Join(s.resDir, kindFileNames[kind])
	if err := index.Save(path); err != nil {
		return fmt.Errorf("save %s index: %w", kind.String(), err)
	}
	return nil
}
