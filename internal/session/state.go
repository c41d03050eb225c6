// Package session keeps per-conversation state in memory.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"sync"
	"time"

	"ut.ee/course-advisor/internal/assembler"
	"ut.ee/course-advisor/internal/llm"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrBusy     = errors.New("a turn is already in progress for this session")
)

type KeyStatus int

const (
	KeyUnknown KeyStatus = iota
	KeyValid
	KeyInvalid
)

func (k KeyStatus) String() string {
	switch k {
	case KeyValid:
		return "valid"
	case KeyInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Fingerprint identifies a credential without retaining it.
func Fingerprint(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// State is one conversation. Turns are serialized with BeginTurn/EndTurn;
// field access is guarded separately so reads never wait for a turn.
type State struct {
	id        string
	createdAt time.Time

	turn sync.Mutex

	mu             sync.RWMutex
	generation     uint64
	messages       []llm.Message
	lastContext    string
	lastCards      []assembler.Card
	inputTokens    int
	outputTokens   int
	followUpStreak int
	keyFingerprint string
	keyStatus      KeyStatus
}

func NewState(id string) *State {
	return &State{id: id, createdAt: time.Now()}
}

func (s *State) ID() string           { return s.id }
func (s *State) CreatedAt() time.Time { return s.createdAt }

// BeginTurn claims the session for one turn. It returns the generation the
// turn must hand back to Commit, or ErrBusy.
func (s *State) BeginTurn() (uint64, error) {
	if !s.turn.TryLock() {
		return 0, ErrBusy
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation, nil
}

func (s *State) EndTurn() {
	s.turn.Unlock()
}

// Reset clears the transcript, retrieval cache and token totals. The key
// validation memo survives. A turn in flight when Reset runs will not commit.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.messages = nil
	s.lastContext = ""
	s.lastCards = nil
	s.inputTokens = 0
	s.outputTokens = 0
	s.followUpStreak = 0
}

func (s *State) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

func (s *State) LastContext() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastContext
}

func (s *State) LastCards() []assembler.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lastCards)
}

func (s *State) FollowUpStreak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.followUpStreak
}

func (s *State) Tokens() (input, output int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputTokens, s.outputTokens
}

// KeyStatus reports the memoized validation result for apiKey. A different
// key than the one last checked is always unknown.
func (s *State) KeyStatus(apiKey string) KeyStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.keyFingerprint != Fingerprint(apiKey) {
		return KeyUnknown
	}
	return s.keyStatus
}

func (s *State) SetKeyStatus(apiKey string, status KeyStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyFingerprint = Fingerprint(apiKey)
	s.keyStatus = status
}

// SetRetrieval caches a fresh search's context and cards.
func (s *State) SetRetrieval(generation uint64, context string, cards []assembler.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return
	}
	s.lastContext = context
	s.lastCards = cards
	s.followUpStreak = 0
}

func (s *State) MarkFollowUp(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return
	}
	s.followUpStreak++
}

// Commit appends one exchange and adds its token counts. It reports false when
// the session was reset after the turn began.
func (s *State) Commit(generation uint64, user, assistant llm.Message, inputTokens, outputTokens int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false
	}
	s.messages = append(s.messages, user, assistant)
	s.inputTokens += inputTokens
	s.outputTokens += outputTokens
	return true
}

type Snapshot struct {
	ID           string           `json:"session_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Messages     []llm.Message    `json:"messages"`
	Cards        []assembler.Card `json:"cards"`
	HasContext   bool             `json:"has_context"`
	InputTokens  int              `json:"input_tokens"`
	OutputTokens int              `json:"output_tokens"`
	KeyStatus    string           `json:"key_status"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		Messages:     slices.Clone(s.messages),
		Cards:        slices.Clone(s.lastCards),
		HasContext:   s.lastContext != "",
		InputTokens:  s.inputTokens,
		OutputTokens: s.outputTokens,
		KeyStatus:    s.keyStatus.String(),
	}
}
