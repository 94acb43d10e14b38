package hugot

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot/pipelines"

	"github.com/RichardKnop/mlserver"
)

// Classify returns the sigmoid probability of every label the model emits.
func (a *Adapter) Classify(ctx context.Context, text string) (map[string]float64, error) {
	if a.classification == nil {
		return nil, fmt.Errorf("hugot classification pipeline: %w", mlserver.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var outputs [][]pipelines.ClassificationOutput
	err := a.observe(a.classificationConfig.Name, "classify", func() error {
		result, err := a.classification.RunPipeline([]string{text})
		if err != nil {
			return err
		}
		outputs = result.ClassificationOutputs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("running classification pipeline: %w", err)
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("got %d classification outputs, expected 1", len(outputs))
	}

	return labelScores(outputs[0]), nil
}

func labelScores(outputs []pipelines.ClassificationOutput) map[string]float64 {
	scores := make(map[string]float64, len(outputs))
	for _, output := range outputs {
		scores[output.Label] = float64(output.Score)
	}
	return scores
}
