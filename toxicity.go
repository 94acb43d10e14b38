package mlserver

import (
	"context"
	"fmt"
	"strings"
)

// ToxicityScores holds independent sigmoid probabilities, one per label.
// They are not normalized across labels.
type ToxicityScores struct {
	Toxicity       float64 `json:"toxicity"`
	SevereToxicity float64 `json:"severe_toxicity"`
	Obscene        float64 `json:"obscene"`
	IdentityAttack float64 `json:"identity_attack"`
	Insult         float64 `json:"insult"`
	Threat         float64 `json:"threat"`
	SexualExplicit float64 `json:"sexual_explicit"`
}

type FlagThresholds struct {
	Toxicity float64
	Insult   float64
}

func DefaultFlagThresholds() FlagThresholds {
	return FlagThresholds{
		Toxicity: 0.70,
		Insult:   0.60,
	}
}

type ToxicityReport struct {
	Scores  ToxicityScores `json:"scores"`
	Flagged bool           `json:"flagged"`
}

// Flagged checks the two thresholds independently, other labels never flag.
func (ts ToxicityScores) Flagged(thresholds FlagThresholds) bool {
	return ts.Toxicity > thresholds.Toxicity || ts.Insult > thresholds.Insult
}

// ToxicityLabels are the keys of every score mapping, in model output order.
var ToxicityLabels = []string{
	"toxicity",
	"severe_toxicity",
	"obscene",
	"identity_attack",
	"insult",
	"threat",
	"sexual_explicit",
}

// Jigsaw style label names used by some checkpoints (e.g. unitary/toxic-bert).
var toxicityLabelAliases = map[string]string{
	"toxic":             "toxicity",
	"severe_toxic":      "severe_toxicity",
	"identity_hate":     "identity_attack",
	"sexually_explicit": "sexual_explicit",
}

// ScoresFromLabels maps model label names onto the fixed score keys. Labels the
// model does not produce score zero; labels outside the fixed set are ignored.
func ScoresFromLabels(labels map[string]float64) ToxicityScores {
	normalized := make(map[string]float64, len(labels))
	for label, score := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if alias, ok := toxicityLabelAliases[key]; ok {
			key = alias
		}
		normalized[key] = score
	}

	return ToxicityScores{
		Toxicity:       normalized["toxicity"],
		SevereToxicity: normalized["severe_toxicity"],
		Obscene:        normalized["obscene"],
		IdentityAttack: normalized["identity_attack"],
		Insult:         normalized["insult"],
		Threat:         normalized["threat"],
		SexualExplicit: normalized["sexual_explicit"],
	}
}

func (s *mlServer) AnalyzeToxicity(ctx context.Context, text string) (ToxicityReport, error) {
	if strings.TrimSpace(text) == "" {
		return ToxicityReport{}, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if s.classifier == nil {
		return ToxicityReport{}, fmt.Errorf("toxicity classifier: %w", ErrNotConfigured)
	}

	labels, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return ToxicityReport{}, fmt.Errorf("classifying text: %w", err)
	}

	scores := ScoresFromLabels(labels)

	return ToxicityReport{
		Scores:  scores,
		Flagged: scores.Flagged(s.flagThresholds),
	}, nil
}
