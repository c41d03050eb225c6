package core

import (
	"iter"
	"sync"

	"ut.ee/course-advisor/internal/assembler"
	"ut.ee/course-advisor/internal/lang"
	"ut.ee/course-advisor/internal/llm"
)

type Outcome string

const (
	OutcomeAnswered         Outcome = "answered"
	OutcomeDeclined         Outcome = "declined"
	OutcomeMissingKey       Outcome = "missing_key"
	OutcomeInvalidKey       Outcome = "invalid_key"
	OutcomeSearchFailed     Outcome = "search_failed"
	OutcomeNoResults        Outcome = "no_results"
	OutcomeCompletionFailed Outcome = "completion_failed"
)

// Result is the committed outcome of a turn.
type Result struct {
	Outcome      Outcome    `json:"outcome"`
	Reply        string     `json:"reply"`
	Notice       string     `json:"notice,omitempty"` // localized error shown next to partial text
	Status       llm.Status `json:"-"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	CostUSD      float64    `json:"cost_usd"`
}

// Turn is one processed utterance. When it streams, the caller must range
// over Fragments or call Drain; the session stays locked until the stream ends.
type Turn struct {
	Locale   lang.Locale
	FollowUp bool
	Cards    []assembler.Card

	stream *llm.Stream

	mu     sync.Mutex
	done   bool
	result Result
}

func (t *Turn) Streaming() bool { return t.stream != nil }

// Fragments yields reply text as it arrives. Non-streaming turns yield nothing.
func (t *Turn) Fragments() iter.Seq[string] {
	if t.stream == nil {
		return func(func(string) bool) {}
	}
	return t.stream.Fragments()
}

// Drain finishes the turn without reading it and returns the result.
func (t *Turn) Drain() Result {
	if t.stream != nil {
		t.stream.Drain()
	}
	return t.Result()
}

// Done reports whether the turn has been committed.
func (t *Turn) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Result is complete once Done reports true.
func (t *Turn) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Turn) settle(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = r
	t.done = true
}
