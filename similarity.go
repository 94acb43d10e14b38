package mlserver

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// Candidate is a sentence compared against the reference. ID is set when the
// candidate was read from the question collection.
type Candidate struct {
	ID   string
	Text string
}

type SimilarityQuery struct {
	Reference  string
	Candidates []string
	// Threshold falls back to the server default when nil.
	Threshold *float64
}

type Match struct {
	ID       string  `json:"id,omitempty"`
	Sentence string  `json:"sentence"`
	Score    float64 `json:"score"`
}

type SimilarityResult struct {
	Reference string  `json:"reference"`
	Threshold float64 `json:"threshold"`
	Matches   []Match `json:"matches"`
}

// FindSimilar returns the candidates whose cosine similarity to the reference is
// at least the threshold, in candidate order.
func (s *mlServer) FindSimilar(ctx context.Context, query SimilarityQuery) (SimilarityResult, error) {
	if strings.TrimSpace(query.Reference) == "" {
		return SimilarityResult{}, fmt.Errorf("%w: empty reference", ErrInvalidInput)
	}

	threshold := s.similarityThreshold
	if query.Threshold != nil {
		threshold = *query.Threshold
	}
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return SimilarityResult{}, fmt.Errorf("%w: threshold must be between -1 and 1", ErrInvalidInput)
	}

	if s.embedder == nil {
		return SimilarityResult{}, fmt.Errorf("embedder: %w", ErrNotConfigured)
	}

	candidates, err := s.similarityCandidates(ctx, query)
	if err != nil {
		return SimilarityResult{}, err
	}

	result := SimilarityResult{
		Reference: query.Reference,
		Threshold: threshold,
		Matches:   []Match{},
	}
	if len(candidates) == 0 {
		return result, nil
	}

	contents := make([]string, 0, len(candidates)+1)
	contents = append(contents, query.Reference)
	for _, c := range candidates {
		contents = append(contents, c.Text)
	}

	vectors, err := s.embedder.EmbedContents(ctx, contents)
	if err != nil {
		return SimilarityResult{}, fmt.Errorf("embedding sentences: %w", err)
	}
	if len(vectors) != len(contents) {
		return SimilarityResult{}, fmt.Errorf("embedded batch size mismatch: got %d, expected %d", len(vectors), len(contents))
	}

	reference := vectors[0]
	for i, c := range candidates {
		similarity, err := CosineSimilarity(reference, vectors[i+1])
		if err != nil {
			return SimilarityResult{}, err
		}
		if similarity < threshold {
			continue
		}
		result.Matches = append(result.Matches, Match{
			ID:       c.ID,
			Sentence: c.Text,
			Score:    RoundScore(similarity),
		})
	}

	s.logger.Debug("similarity computed",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(result.Matches)),
		zap.Float64("threshold", threshold),
	)

	return result, nil
}

func (s *mlServer) similarityCandidates(ctx context.Context, query SimilarityQuery) ([]Candidate, error) {
	if len(query.Candidates) > 0 {
		candidates := make([]Candidate, 0, len(query.Candidates))
		for _, text := range query.Candidates {
			candidates = append(candidates, Candidate{Text: text})
		}
		return candidates, nil
	}

	if s.questions == nil {
		return nil, fmt.Errorf("%w: missing candidates", ErrInvalidInput)
	}

	stored, err := s.questions.ListQuestions(ctx, s.collectionLimit)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}

	// The reference is usually one of the stored questions, never match it with itself.
	candidates := make([]Candidate, 0, len(stored))
	for _, c := range stored {
		if c.Text == query.Reference || strings.TrimSpace(c.Text) == "" {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// A zero vector has no direction and scores 0 against anything.
func CosineSimilarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Floating point error can push parallel vectors slightly past 1.
	return math.Max(-1, math.Min(1, similarity)), nil
}

// RoundScore rounds a similarity score to 4 decimal places.
func RoundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
