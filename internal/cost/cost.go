// Package cost counts tokens and turns token totals into a USD estimate.
package cost

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"ut.ee/course-advisor/internal/llm"
)

const DefaultEncoding = "cl100k_base"

type Tokenizer interface {
	Count(text string) int
}

type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads a BPE encoding. The first load may download the
// vocabulary unless TIKTOKEN_CACHE_DIR points at a local copy.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (t *TiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// ApproxCounter estimates one token per four code points, rounded up.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Pricing is USD per million tokens.
type Pricing struct {
	InPerMillion  float64
	OutPerMillion float64
}

func DefaultPricing() Pricing {
	return Pricing{InPerMillion: 0.10, OutPerMillion: 0.20}
}

func (p Pricing) Estimate(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*p.InPerMillion + float64(outputTokens)*p.OutPerMillion) / 1_000_000
}

type Tracker struct {
	tokenizer Tokenizer
	pricing   Pricing
}

func NewTracker(tokenizer Tokenizer, pricing Pricing) *Tracker {
	return &Tracker{tokenizer: tokenizer, pricing: pricing}
}

func (t *Tracker) Count(text string) int {
	return t.tokenizer.Count(text)
}

// CountMessages sums the token counts of every message's content.
func (t *Tracker) CountMessages(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += t.tokenizer.Count(m.Content)
	}
	return total
}

func (t *Tracker) Estimate(inputTokens, outputTokens int) float64 {
	return t.pricing.Estimate(inputTokens, outputTokens)
}

func (t *Tracker) Pricing() Pricing { return t.pricing }
