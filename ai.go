package mlserver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Vector []float32

// Ask renders the question into the assistant prompt and returns the model's trimmed answer.
func (s *mlServer) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	if s.chat == nil {
		return "", fmt.Errorf("chat model: %w", ErrNotConfigured)
	}

	s.logger.Debug("asking assistant", zap.String("model", s.chat.Name()), zap.Int("question_len", len(question)))

	answer, err := s.chat.Complete(ctx, fmt.Sprintf(assistantTemplate, question))
	if err != nil {
		return "", fmt.Errorf("calling chat model: %w", err)
	}

	return strings.TrimSpace(answer), nil
}

// GenerateTags asks the chat model for tags describing the question. The model
// output must be a JSON array of non-empty strings, anything else is an error.
func (s *mlServer) GenerateTags(ctx context.Context, question string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	if s.chat == nil {
		return nil, fmt.Errorf("chat model: %w", ErrNotConfigured)
	}

	raw, err := s.chat.Complete(ctx, fmt.Sprintf(tagsTemplate, question))
	if err != nil {
		return nil, fmt.Errorf("calling chat model: %w", err)
	}

	tags, err := ParseTags(raw)
	if err != nil {
		s.logger.Warn("rejected tag output", zap.String("raw", raw), zap.Error(err))
		return nil, err
	}

	return tags, nil
}
