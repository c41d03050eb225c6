package retrieval

import "strings"

const DefaultFollowUpThreshold = 6

// FollowUpState is the part of a conversation the decider looks at.
type FollowUpState interface {
	LastContext() string
	FollowUpStreak() int
}

// Decider chooses between a fresh search and reusing the previous turn's
// retrieval context.
type Decider struct {
	// Threshold is the exclusive upper bound on whitespace tokens for a follow-up.
	Threshold int
	// MaxReuse caps consecutive follow-up turns. Zero means no cap.
	MaxReuse int
}

func NewDecider(threshold, maxReuse int) Decider {
	if threshold <= 0 {
		threshold = DefaultFollowUpThreshold
	}
	return Decider{Threshold: threshold, MaxReuse: maxReuse}
}

// IsFollowUp is true only when a prior context exists and the utterance has
// fewer than Threshold words.
func (d Decider) IsFollowUp(state FollowUpState, utterance string) bool {
	if state.LastContext() == "" {
		return false
	}
	if d.MaxReuse > 0 && state.FollowUpStreak() >= d.MaxReuse {
		return false
	}
	return len(strings.Fields(utterance)) < d.Threshold
}
