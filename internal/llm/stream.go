package llm

import (
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
)

// Stream is a lazy, single-consumption sequence of completion fragments.
// After the sequence ends, Status and Err report how it terminated and Text
// holds everything that was received.
type Stream struct {
	recv     func() (string, error)
	closeFn  func()
	consumed atomic.Bool

	mu     sync.Mutex
	status Status
	err    error
	text   strings.Builder
	onDone []func(*Stream)
}

// NewStream wraps a receive function. recv returns io.EOF at the normal end.
// closeFn, if set, runs once when the stream terminates.
func NewStream(recv func() (string, error), closeFn func()) *Stream {
	return &Stream{recv: recv, closeFn: closeFn}
}

// Failed returns a stream that terminates immediately with err.
func Failed(err error) *Stream {
	return NewStream(func() (string, error) { return "", err }, nil)
}

// Fragments yields text fragments as they arrive. Only the first call yields
// anything. Breaking out of the loop ends the stream as interrupted.
func (s *Stream) Fragments() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			return
		}
		if s.closeFn != nil {
			defer s.closeFn()
		}
		for {
			frag, err := s.recv()
			if errors.Is(err, io.EOF) {
				s.finish(StatusOK, nil)
				return
			}
			if err != nil {
				s.finish(Classify(err), err)
				return
			}
			if frag == "" {
				continue
			}
			s.mu.Lock()
			s.text.WriteString(frag)
			s.mu.Unlock()
			if !yield(frag) {
				s.finish(StatusOtherError, ErrInterrupted)
				return
			}
		}
	}
}

// Drain consumes whatever is left and returns the terminal status.
func (s *Stream) Drain() Status {
	for range s.Fragments() {
	}
	return s.Status()
}

// OnDone registers fn to run once the stream terminates. If it already has,
// fn runs immediately.
func (s *Stream) OnDone(fn func(*Stream)) {
	s.mu.Lock()
	if s.status != StatusPending {
		s.mu.Unlock()
		fn(s)
		return
	}
	s.onDone = append(s.onDone, fn)
	s.mu.Unlock()
}

func (s *Stream) finish(status Status, err error) {
	s.mu.Lock()
	s.status = status
	s.err = err
	hooks := s.onDone
	s.onDone = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}
}

func (s *Stream) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Text is the concatenation of every fragment received so far.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}
