package googlegenai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/RichardKnop/mlserver/internal/metrics"
)

func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: a.maxTokens,
		Temperature:     a.temperature,
	}

	start := time.Now()
	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.generativeModel,
		genai.Text(prompt),
		config,
	)
	metrics.ObserveInference(adapterName, a.generativeModel, "chat", start, err)
	if err != nil {
		return "", fmt.Errorf("calling generative model: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("generative model returned no candidates")
	}

	return resp.Text(), nil
}
