package mlserver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SummaryParams configures beam search generation. Lengths are in model tokens.
type SummaryParams struct {
	MaxInputTokens int
	MinLength      int
	MaxLength      int
	NumBeams       int
	LengthPenalty  float64
	EarlyStopping  bool
}

func DefaultSummaryParams() SummaryParams {
	return SummaryParams{
		MaxInputTokens: 1024,
		MinLength:      30,
		MaxLength:      200,
		NumBeams:       5,
		LengthPenalty:  2.0,
		EarlyStopping:  true,
	}
}

func (p SummaryParams) Valid() error {
	if p.MinLength < 0 || p.MaxLength <= 0 || p.MinLength > p.MaxLength {
		return fmt.Errorf("invalid summary length bounds [%d, %d]", p.MinLength, p.MaxLength)
	}
	if p.NumBeams < 1 {
		return fmt.Errorf("invalid number of beams: %d", p.NumBeams)
	}
	if p.MaxInputTokens <= 0 {
		return fmt.Errorf("invalid max input tokens: %d", p.MaxInputTokens)
	}
	return nil
}

// Summarize truncates text to the model input window and returns the generated summary.
func (s *mlServer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if s.summarizer == nil {
		return "", fmt.Errorf("summarizer: %w", ErrNotConfigured)
	}
	if err := s.summaryParams.Valid(); err != nil {
		return "", err
	}

	input := text
	if s.truncator != nil {
		truncated, err := s.truncator.Truncate(text, s.summaryParams.MaxInputTokens)
		if err != nil {
			return "", fmt.Errorf("truncating input: %w", err)
		}
		if len(truncated) < len(text) {
			s.logger.Debug("truncated summary input",
				zap.Int("original_len", len(text)),
				zap.Int("truncated_len", len(truncated)),
			)
		}
		input = truncated
	}

	summary, err := s.summarizer.Summarize(ctx, input, s.summaryParams)
	if err != nil {
		return "", fmt.Errorf("calling summarizer: %w", err)
	}

	return strings.TrimSpace(summary), nil
}
