package mlservertest

import (
	"encoding/hex"
	"strings"

	"github.com/RichardKnop/mlserver"
)

// Text returns a paragraph of roughly sentences*words words.
func (g *DataGen) Text(sentences, words int) string {
	return g.Paragraph(1, sentences, words, " ")
}

func (g *DataGen) Tags(n int) []string {
	tags := make([]string, 0, n)
	for range n {
		tags = append(tags, strings.ToLower(g.HackerNoun()))
	}
	return tags
}

type CandidateOption func(*mlserver.Candidate)

func WithCandidateText(text string) CandidateOption {
	return func(c *mlserver.Candidate) {
		c.Text = text
	}
}

func WithCandidateID(id string) CandidateOption {
	return func(c *mlserver.Candidate) {
		c.ID = id
	}
}

// Candidate returns a stored question with a Mongo-like 24 hex character id.
func (g *DataGen) Candidate(options ...CandidateOption) mlserver.Candidate {
	id := make([]byte, 12)
	for i := range id {
		id[i] = byte(g.Uint8())
	}

	aCandidate := mlserver.Candidate{
		ID:   hex.EncodeToString(id),
		Text: g.Question(),
	}

	for _, o := range options {
		o(&aCandidate)
	}

	return aCandidate
}

// LabelScores returns probabilities for every toxicity label, all below low.
func (g *DataGen) LabelScores(low float64) map[string]float64 {
	scores := make(map[string]float64, len(mlserver.ToxicityLabels))
	for _, label := range mlserver.ToxicityLabels {
		scores[label] = g.Float64Range(0, low)
	}
	return scores
}
