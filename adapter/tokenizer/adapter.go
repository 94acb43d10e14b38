package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Encoder turns text into BPE token ids and back.
type Encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

type SentenceSplitter interface {
	Tokenize(text string) []*sentences.Sentence
}

// Adapter truncates text to a token budget, cutting at the last sentence
// boundary that fits.
type Adapter struct {
	encoder       Encoder
	splitter      SentenceSplitter
	specialTokens int
	logger        *zap.Logger
}

type Option func(*Adapter)

// WithSpecialTokens reserves room for the tokens the model adds around the input.
func WithSpecialTokens(n int) Option {
	return func(a *Adapter) {
		a.specialTokens = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	// The GPT-2 byte level BPE, the same vocabulary BART uses.
	defaultEncoding = "r50k_base"

	// BART wraps the input in <s> and </s>.
	defaultSpecialTokens = 2
)

// NewEncoder loads a tiktoken encoding by name, r50k_base when empty.
func NewEncoder(encoding string) (*tiktoken.Tiktoken, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encoding, err)
	}
	return enc, nil
}

// NewSentenceSplitter returns the English Punkt sentence tokenizer.
func NewSentenceSplitter() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
}

func New(encoder Encoder, splitter SentenceSplitter, options ...Option) *Adapter {
	a := &Adapter{
		encoder:       encoder,
		splitter:      splitter,
		specialTokens: defaultSpecialTokens,
		logger:        zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	return a
}

func (a *Adapter) Truncate(text string, maxTokens int) (string, error) {
	budget := maxTokens - a.specialTokens
	if budget <= 0 {
		return "", fmt.Errorf("token limit %d leaves no room for input", maxTokens)
	}

	tokens := a.encoder.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text, nil
	}

	kept := make([]string, 0)
	used := 0
	for _, sentence := range a.splitter.Tokenize(text) {
		s := strings.TrimSpace(sentence.Text)
		if s == "" {
			continue
		}
		n := len(a.encoder.Encode(s+" ", nil, nil))
		if used+n > budget {
			break
		}
		kept = append(kept, s)
		used += n
	}

	var truncated string
	if len(kept) > 0 {
		truncated = strings.Join(kept, " ")
	} else {
		// The first sentence alone is over budget, cut it mid sentence. The cut
		// can land inside a multi byte rune, drop the partial rune.
		truncated = strings.ToValidUTF8(a.encoder.Decode(tokens[:budget]), "")
		truncated = strings.TrimRight(truncated, string(utf8.RuneError))
	}

	a.logger.Debug("truncated input",
		zap.Int("tokens", len(tokens)),
		zap.Int("budget", budget),
		zap.Int("sentences", len(kept)),
	)

	return truncated, nil
}
