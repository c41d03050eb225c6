package cost

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ut.ee/course-advisor/internal/llm"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' {
			inWord = false
			continue
		}
		if !inWord {
			n++
		}
		inWord = true
	}
	return n
}

func TestPricing_Estimate(t *testing.T) {
	p := DefaultPricing()
	assert.InDelta(t, 0.0005, p.Estimate(1000, 2000), 1e-12)
	assert.Zero(t, p.Estimate(0, 0))
	assert.InDelta(t, 0.3, p.Estimate(1_000_000, 1_000_000), 1e-12)
}

func TestTracker_CountMessages(t *testing.T) {
	tr := NewTracker(wordCounter{}, DefaultPricing())

	msgs := []llm.Message{
		llm.System("you are an advisor"),
		llm.User("machine learning"),
		llm.Assistant(""),
	}
	assert.Equal(t, 6, tr.CountMessages(msgs))
	assert.Equal(t, 2, tr.Count("two words"))
	assert.InDelta(t, 0.0005, tr.Estimate(1000, 2000), 1e-12)
}

func TestApproxCounter(t *testing.T) {
	assert.Equal(t, 0, ApproxCounter{}.Count(""))
	assert.Equal(t, 1, ApproxCounter{}.Count("abc"))
	assert.Equal(t, 2, ApproxCounter{}.Count("õõõõõ"))
}

func TestTiktokenCounter(t *testing.T) {
	if os.Getenv("TIKTOKEN_CACHE_DIR") == "" {
		t.Skip("TIKTOKEN_CACHE_DIR not set, skipping vocabulary download")
	}
	c, err := NewTiktokenCounter("")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count("hello world"))
}
