// Package safety screens user utterances before any retrieval or model call.
package safety

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Reason identifies which check rejected an utterance.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonLength     Reason = "length"
	ReasonPattern    Reason = "pattern"
	ReasonRepetition Reason = "repetition"
)

const (
	DefaultMaxLength      = 1000
	DefaultMaxRepetitions = 15
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

// Verdict is the result of Evaluate. PatternID is set only for pattern rejections.
type Verdict struct {
	Rejected  bool
	Reason    Reason
	PatternID string
}

// Pattern is one entry of the blocklist file.
type Pattern struct {
	ID    string `yaml:"id"`
	Regex string `yaml:"regex"`

	compiled *regexp.Regexp
}

type patternFile struct {
	Version  int       `yaml:"version"`
	Patterns []Pattern `yaml:"patterns"`
}

// Guard applies the length, pattern and repetition checks in that order.
// It holds no mutable state and is safe for concurrent use.
type Guard struct {
	maxLength      int
	maxRepetitions int
	patterns       []Pattern
}

// NewGuard compiles the given patterns case-insensitively.
func NewGuard(maxLength, maxRepetitions int, patterns []Pattern) (*Guard, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if maxRepetitions <= 0 {
		maxRepetitions = DefaultMaxRepetitions
	}

	compiled := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p.Regex)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p.ID, err)
		}
		p.compiled = re
		compiled = append(compiled, p)
	}

	return &Guard{
		maxLength:      maxLength,
		maxRepetitions: maxRepetitions,
		patterns:       compiled,
	}, nil
}

// Evaluate never panics and accepts any input, including the empty string.
func (g *Guard) Evaluate(text string) Verdict {
	if utf8.RuneCountInString(text) > g.maxLength {
		return Verdict{Rejected: true, Reason: ReasonLength}
	}

	for _, p := range g.patterns {
		if p.compiled.MatchString(text) {
			return Verdict{Rejected: true, Reason: ReasonPattern, PatternID: p.ID}
		}
	}

	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		counts[word]++
		if counts[word] > g.maxRepetitions {
			return Verdict{Rejected: true, Reason: ReasonRepetition}
		}
	}

	return Verdict{}
}

// PatternCount reports how many blocklist patterns are active.
func (g *Guard) PatternCount() int {
	return len(g.patterns)
}

// DefaultPatterns returns the embedded blocklist.
func DefaultPatterns() []Pattern {
	patterns, err := ParsePatterns(defaultPatternsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded safety patterns are invalid: %v", err))
	}
	return patterns
}

// LoadPatterns reads a blocklist file. An empty path yields the embedded default.
func LoadPatterns(path string) ([]Pattern, error) {
	if path == "" {
		return DefaultPatterns(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file %s: %w", path, err)
	}
	return ParsePatterns(data)
}

func ParsePatterns(data []byte) ([]Pattern, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}
	for i, p := range f.Patterns {
		if p.Regex == "" {
			return nil, fmt.Errorf("pattern %d (%q) has an empty regex", i, p.ID)
		}
	}
	return f.Patterns, nil
}
