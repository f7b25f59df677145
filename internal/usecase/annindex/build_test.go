package annindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"omninews-ingest/internal/domain/entity"
)

type fakeEmbeddingRepo struct {
	byKind map[entity.EmbeddingKind][]*entity.Embedding
	errs   map[entity.EmbeddingKind]error
}

func (f *fakeEmbeddingRepo) ListEmbeddings(ctx context.Context, kind entity.EmbeddingKind) ([]*entity.Embedding, error) {
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	return f.byKind[kind], nil
}
func (f *fakeEmbeddingRepo) UpsertChannelEmbedding(ctx context.Context, channelID int64, value []float32) error {
	return nil
}
func (f *fakeEmbeddingRepo) UpsertItemEmbedding(ctx context.Context, itemID int64, value []float32) error {
	return nil
}

type fakeRecorder struct {
	calls []string
}

func (r *fakeRecorder) RecordRun(track, status string, seconds float64) {
	r.calls = append(r.calls, track+":"+status)
}

func vec384() []float32 { return make([]float32, entity.EmbeddingDim) }

func TestBuildAll_SkipsEmptyKindsAndBuildsNonEmptyOnes(t *testing.T) {
	repo := &fakeEmbeddingRepo{byKind: map[entity.EmbeddingKind][]*entity.Embedding{
		entity.EmbeddingKindChannel: {{ID: 1, Value: vec384()}},
	}}
	recorder := &fakeRecorder{}
	dir := t.TempDir()
	svc := NewService(repo, dir, recorder)

	if err := svc.BuildAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "channel_embeddings.ann")); err != nil {
		t.Errorf("expected channel index file to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "rss_embeddings.ann")); err == nil {
		t.Error("expected no item index file when there are zero item embeddings")
	}

	if len(recorder.calls) != 3 {
		t.Errorf("expected a run recorded for all three kinds, got %v", recorder.calls)
	}
}

func TestBuildAll_PropagatesListError(t *testing.T) {
	repo := &fakeEmbeddingRepo{errs: map[entity.EmbeddingKind]error{
		entity.EmbeddingKindChannel: errors.New("db down"),
	}}
	svc := NewService(repo, t.TempDir(), &fakeRecorder{})

	if err := svc.BuildAll(context.Background()); err == nil {
		t.Fatal("expected the list error to propagate and stop the build")
	}
}

func TestBuildAll_NilRecorderDoesNotPanic(t *testing.T) {
	repo := &fakeEmbeddingRepo{}
	svc := NewService(repo, t.TempDir(), nil)

	if err := svc.BuildAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
