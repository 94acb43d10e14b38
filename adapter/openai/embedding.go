package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

func (a *Adapter) EmbedContents(ctx context.Context, contents []string) ([]mlserver.Vector, error) {
	if a.embeddingModel == "" {
		return nil, fmt.Errorf("openai embedding model: %w", mlserver.ErrNotConfigured)
	}

	req := openai.EmbeddingRequest{
		Input:          contents,
		Model:          a.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()
	resp, err := a.client.CreateEmbeddings(ctx, req)
	metrics.ObserveInference(a.provider, string(a.embeddingModel), "embed", start, err)
	if err != nil {
		return nil, parseAPIError("embedding", err)
	}

	if len(resp.Data) != len(contents) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	// Data is not guaranteed to come back in input order.
	vectors := make([]mlserver.Vector, len(contents))
	for _, embedding := range resp.Data {
		if embedding.Index < 0 || embedding.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", embedding.Index)
		}
		vectors[embedding.Index] = embedding.Embedding
	}

	return vectors, nil
}
