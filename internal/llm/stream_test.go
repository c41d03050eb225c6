package llm

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragments(parts ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(parts) {
			return "", io.EOF
		}
		p := parts[i]
		i++
		return p, nil
	}
}

func TestStream_FullConsumption(t *testing.T) {
	closed := 0
	s := NewStream(fragments("Hello", "", ", ", "world"), func() { closed++ })

	var got []string
	for frag := range s.Fragments() {
		got = append(got, frag)
	}

	assert.Equal(t, []string{"Hello", ", ", "world"}, got)
	assert.Equal(t, StatusOK, s.Status())
	assert.NoError(t, s.Err())
	assert.Equal(t, "Hello, world", s.Text())
	assert.Equal(t, 1, closed)
}

func TestStream_SingleConsumption(t *testing.T) {
	s := NewStream(fragments("a", "b"), nil)
	assert.Equal(t, StatusOK, s.Drain())

	n := 0
	for range s.Fragments() {
		n++
	}
	assert.Zero(t, n)
	assert.Equal(t, "ab", s.Text())
}

func TestStream_EarlyBreakIsInterruption(t *testing.T) {
	closed := false
	s := NewStream(fragments("a", "b", "c"), func() { closed = true })

	for range s.Fragments() {
		break
	}

	assert.Equal(t, StatusOtherError, s.Status())
	assert.ErrorIs(t, s.Err(), ErrInterrupted)
	assert.Equal(t, "a", s.Text())
	assert.True(t, closed)
}

func TestStream_MidStreamFailureKeepsPartialText(t *testing.T) {
	calls := 0
	s := NewStream(func() (string, error) {
		calls++
		if calls == 1 {
			return "partial", nil
		}
		return "", errors.New("error, status code: 429, message: rate limit exceeded")
	}, nil)

	assert.Equal(t, StatusRateLimited, s.Drain())
	assert.Equal(t, "partial", s.Text())
	assert.Error(t, s.Err())
}

func TestStream_OnDone(t *testing.T) {
	s := NewStream(fragments("x"), nil)

	var seen []Status
	s.OnDone(func(s *Stream) { seen = append(seen, s.Status()) })
	require.Empty(t, seen)

	s.Drain()
	assert.Equal(t, []Status{StatusOK}, seen)

	s.OnDone(func(s *Stream) { seen = append(seen, s.Status()) })
	assert.Len(t, seen, 2, "late hooks run immediately")
}

func TestFailed(t *testing.T) {
	s := Failed(errors.New("401 Unauthorized"))
	assert.Equal(t, StatusAuthFailed, s.Drain())
	assert.Empty(t, s.Text())
}
