package hugot

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot/pipelines"

	"github.com/RichardKnop/mlserver"
)

// Complete runs the prompt through the local text generation model as a single user turn.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	if a.generative == nil {
		return "", fmt.Errorf("hugot generative pipeline: %w", mlserver.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.logger.Sugar().With("prompt_len", len(prompt)).Debug("generating completion")

	var outputs []any
	err := a.observe(a.generativeConfig.Name, "chat", func() error {
		batchResult, err := a.generative.RunWithTemplate([][]pipelines.Message{
			{
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		outputs = batchResult.GetOutput()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("calling generative model: %w", err)
	}

	if len(outputs) != 1 {
		return "", fmt.Errorf("got %d generated outputs, expected 1", len(outputs))
	}

	result, ok := outputs[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected generated output type %T", outputs[0])
	}

	return strings.TrimSpace(result), nil
}
