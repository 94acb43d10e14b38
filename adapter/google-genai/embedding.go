package googlegenai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

func (a *Adapter) EmbedContents(ctx context.Context, contents []string) ([]mlserver.Vector, error) {
	// Use the batch embedding API to embed all contents at once.
	genaiContents := make([]*genai.Content, 0, len(contents))
	for _, content := range contents {
		genaiContents = append(genaiContents, genai.NewContentFromText(content, genai.RoleUser))
	}

	a.logger.Sugar().Debugf("invoking embedding model with %d contents", len(contents))

	start := time.Now()
	embedResponse, err := a.client.Models.EmbedContent(ctx,
		a.embeddingModel,
		genaiContents,
		nil,
	)
	metrics.ObserveInference(adapterName, a.embeddingModel, "embed", start, err)
	if err != nil {
		return nil, fmt.Errorf("embed content error: %w", err)
	}

	if len(embedResponse.Embeddings) != len(contents) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	vectors := make([]mlserver.Vector, 0, len(embedResponse.Embeddings))
	for i := range embedResponse.Embeddings {
		vectors = append(vectors, embedResponse.Embeddings[i].Values)
	}

	return vectors, nil
}
