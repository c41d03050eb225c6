package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeState struct {
	context string
	streak  int
}

func (f fakeState) LastContext() string { return f.context }
func (f fakeState) FollowUpStreak() int { return f.streak }

func TestDecider_IsFollowUp(t *testing.T) {
	d := NewDecider(3, 0)

	tests := []struct {
		name      string
		state     fakeState
		utterance string
		want      bool
	}{
		{"no prior context short", fakeState{}, "yes", false},
		{"no prior context long", fakeState{}, "tell me more about the first one please", false},
		{"short follow-up", fakeState{context: "[1] ..."}, "yes", true},
		{"two words", fakeState{context: "[1] ..."}, "compare them", true},
		{"at threshold", fakeState{context: "[1] ..."}, "which is easier", false},
		{"extra whitespace", fakeState{context: "[1] ..."}, "  why \t not  ", true},
		{"empty utterance", fakeState{context: "[1] ..."}, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.IsFollowUp(tc.state, tc.utterance))
		})
	}
}

// A genuine follow-up phrased at length is re-searched. The result is
// redundant but still correct.
func TestDecider_FalseNegativeIsFreshSearch(t *testing.T) {
	d := NewDecider(DefaultFollowUpThreshold, 0)
	state := fakeState{context: "[1] Machine Learning (MTAT.03.227, 6 EAP, spring)"}
	assert.False(t, d.IsFollowUp(state, "can you tell me more about the first course"))
}

// A short but unrelated request is answered from the old context. This
// stale reuse is the accepted cost of the heuristic.
func TestDecider_FalsePositiveReusesStaleContext(t *testing.T) {
	d := NewDecider(DefaultFollowUpThreshold, 0)
	state := fakeState{context: "[1] Machine Learning (MTAT.03.227, 6 EAP, spring)", streak: 40}
	assert.True(t, d.IsFollowUp(state, "medieval history courses"))
}

func TestDecider_MaxReuse(t *testing.T) {
	d := NewDecider(DefaultFollowUpThreshold, 2)
	assert.True(t, d.IsFollowUp(fakeState{context: "x", streak: 1}, "yes"))
	assert.False(t, d.IsFollowUp(fakeState{context: "x", streak: 2}, "yes"))
}

func TestNewDecider_Defaults(t *testing.T) {
	assert.Equal(t, DefaultFollowUpThreshold, NewDecider(0, 0).Threshold)
}
