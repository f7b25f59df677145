// Package embedder provides concrete implementations of C9's opaque
// text -> vector<384> collaborator.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/resilience/circuitbreaker"
	"omninews-ingest/internal/resilience/retry"
)

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string
	// Model is the embeddings model identifier. Default: text-embedding-3-small.
	Model openai.EmbeddingModel
	// Timeout bounds a single embedding call.
	Timeout time.Duration
}

// DefaultOpenAIConfig returns production defaults; APIKey must still be set.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:   openai.SmallEmbedding3,
		Timeout: 30 * time.Second,
	}
}

// OpenAI implements embedding.Provider against OpenAI's embeddings API,
// requesting exactly entity.EmbeddingDim output dimensions via the
// Dimensions request field (supported by the v3 embedding models).
type OpenAI struct {
	client         *openai.Client
	model          openai.EmbeddingModel
	timeout        time.Duration
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.SmallEmbedding3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAI{
		client:         openai.NewClient(cfg.APIKey),
		model:          cfg.Model,
		timeout:        cfg.Timeout,
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
	}
}

// Embed computes a 384-dim vector for text, with retry and circuit
// breaker protection matching the teacher's summarizer client shape.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var result []float32

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doEmbed(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai embeddings circuit breaker open, request rejected",
					slog.String("service", "openai-embeddings"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai embeddings unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.([]float32)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("openai embed failed after retries: %w", retryErr)
	}
	return result, nil
}

func (o *OpenAI) doEmbed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      o.model,
		Dimensions: entity.EmbeddingDim,
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "embedding request failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("openai embeddings api error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings api returned empty response")
	}

	slog.DebugContext(ctx, "embedding computed", slog.Duration("duration", duration))

	return resp.Data[0].Embedding, nil
}
