package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Status is how a completion stream terminated.
type Status int

const (
	StatusPending Status = iota
	StatusOK
	StatusAuthFailed
	StatusRateLimited
	StatusOtherError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOK:
		return "ok"
	case StatusAuthFailed:
		return "auth_failed"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "other_error"
	}
}

// ErrInterrupted is recorded when the consumer stops reading before the end.
var ErrInterrupted = errors.New("stream interrupted by consumer")

var (
	authCodes = regexp.MustCompile(`\b(401|403)\b`)
	rateCodes = regexp.MustCompile(`\b429\b`)
)

// Classify maps a completion error onto a terminal status. Cancellation and
// transport failures are always StatusOtherError; typed HTTP errors are
// checked next, and message wording is the fallback for providers that
// rewrap them.
func Classify(err error) Status {
	if err == nil {
		return StatusOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrInterrupted) {
		return StatusOtherError
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if s, ok := classifyHTTP(apiErr.HTTPStatusCode); ok {
			return s
		}
		return classifyWording(apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if s, ok := classifyHTTP(reqErr.HTTPStatusCode); ok {
			return s
		}
	}

	// Transport errors carry the request URL, whose host, port or path may
	// contain anything.
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return StatusOtherError
	}

	return classifyWording(err.Error())
}

func classifyWording(msg string) Status {
	msg = strings.ToLower(msg)
	switch {
	case authCodes.MatchString(msg),
		containsAny(msg, "authentication", "invalid api key", "unauthorized"):
		return StatusAuthFailed
	case rateCodes.MatchString(msg), strings.Contains(msg, "rate limit"):
		return StatusRateLimited
	default:
		return StatusOtherError
	}
}

func classifyHTTP(code int) (Status, bool) {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return StatusAuthFailed, true
	case http.StatusTooManyRequests:
		return StatusRateLimited, true
	case 0:
		return 0, false
	default:
		return StatusOtherError, true
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
