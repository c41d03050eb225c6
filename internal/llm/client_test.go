package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sseServer(t *testing.T, fragments []string, abortAfter int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer good-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i, f := range fragments {
			if abortAfter > 0 && i == abortAfter {
				// malformed chunk terminates the stream with a decode error
				fmt.Fprint(w, "data: {not json\n\n")
				flusher.Flush()
				return
			}
			chunk, _ := json.Marshal(map[string]any{
				"id":      "c1",
				"object":  "chat.completion.chunk",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": f}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func errorServer(t *testing.T, code int, message string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"error":{"message":%q,"type":"error","code":%d}}`, message, code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_StreamReply(t *testing.T) {
	srv := sseServer(t, []string{"Masinõpe ", "sobib ", "hästi."}, 0)
	c := NewClient(srv.URL, "test-model", zap.NewNop())

	s := c.StreamReply(context.Background(), "good-key", []Message{System("sys"), User("hi")})

	var got []string
	for f := range s.Fragments() {
		got = append(got, f)
	}
	assert.Equal(t, []string{"Masinõpe ", "sobib ", "hästi."}, got)
	assert.Equal(t, StatusOK, s.Status())
	assert.Equal(t, "Masinõpe sobib hästi.", s.Text())
}

func TestClient_StreamReplyAbortedMidStream(t *testing.T) {
	srv := sseServer(t, []string{"one ", "two ", "three"}, 2)
	c := NewClient(srv.URL, "test-model", zap.NewNop())

	s := c.StreamReply(context.Background(), "good-key", []Message{User("hi")})
	assert.Equal(t, StatusOtherError, s.Drain())
	assert.Equal(t, "one two ", s.Text())
}

func TestClient_StreamReplyHTTPErrors(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{http.StatusUnauthorized, StatusAuthFailed},
		{http.StatusTooManyRequests, StatusRateLimited},
		{http.StatusBadGateway, StatusOtherError},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			srv := errorServer(t, tc.code, "upstream says no")
			c := NewClient(srv.URL, "test-model", zap.NewNop())

			s := c.StreamReply(context.Background(), "any", []Message{User("hi")})
			assert.Equal(t, tc.want, s.Drain())
			assert.Empty(t, s.Text())
			assert.Error(t, s.Err())
		})
	}
}

func TestClient_StreamReplyCancelled(t *testing.T) {
	srv := sseServer(t, []string{"a"}, 0)
	c := NewClient(srv.URL, "test-model", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := c.StreamReply(ctx, "good-key", []Message{User("hi")})
	assert.Equal(t, StatusOtherError, s.Drain())
}

func TestClient_ValidateKey(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"google/gemma-3-27b-it","object":"model"}]}`))
	}))
	defer ok.Close()

	status, err := NewClient(ok.URL, "", zap.NewNop()).ValidateKey(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	status, err = NewClient(errorServer(t, 401, "bad key").URL, "", zap.NewNop()).ValidateKey(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusAuthFailed, status)

	status, err = NewClient(errorServer(t, 503, "down").URL, "", zap.NewNop()).ValidateKey(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, StatusOtherError, status)
}
