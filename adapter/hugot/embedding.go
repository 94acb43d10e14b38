package hugot

import (
	"context"
	"fmt"

	"github.com/RichardKnop/mlserver"
)

func (a *Adapter) EmbedContents(ctx context.Context, contents []string) ([]mlserver.Vector, error) {
	if a.embedding == nil {
		return nil, fmt.Errorf("hugot embedding pipeline: %w", mlserver.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var embeddings [][]float32
	err := a.observe(a.embeddingConfig.Name, "embed", func() error {
		embeddingResult, err := a.embedding.RunPipeline(contents)
		if err != nil {
			return err
		}
		embeddings = embeddingResult.Embeddings
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("running embedding pipeline: %w", err)
	}

	if len(embeddings) != len(contents) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	vectors := make([]mlserver.Vector, 0, len(embeddings))
	for i := range embeddings {
		vectors = append(vectors, embeddings[i])
	}

	return vectors, nil
}
