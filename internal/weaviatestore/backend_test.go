package weaviatestore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/filter"
	"ut.ee/course-advisor/internal/retrieval"
)

func fakeWeaviate(t *testing.T, response string, queries *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/v1/graphql" {
			_, _ = w.Write([]byte(`{"version":"1.25.0"}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		*queries = append(*queries, req.Query)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBackend_Query(t *testing.T) {
	var queries []string
	srv := fakeWeaviate(t, `{"data":{"Get":{"Course":[
		{"code":"MTAT.03.227","title_en":"Machine Learning","eap":6,"semester":"spring","rag_text":"ml","_additional":{"distance":0.12}},
		{"code":"MTAT.03.183","title_en":"Data Mining","eap":4.5,"_additional":{"distance":0.3}}
	]}}}`, &queries)

	b, err := NewBackend(srv.URL, "")
	require.NoError(t, err)

	compiler := filter.NewCompiler(filter.Enumerations{Version: "t", Fields: map[string][]string{
		course.FieldLanguages: {"English", "English, Estonian", "Estonian"},
	}}, filter.Bounds{})
	expr := compiler.Compile(filter.Selections{Semester: "spring", Language: "English", CreditsMin: 3})

	hits, err := b.Query(context.Background(), retrieval.Query{Vector: []float32{0.6, 0.8}, Filter: expr, TopK: 5})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "MTAT.03.227", hits[0].Metadata[course.FieldCode])
	assert.Equal(t, "6", hits[0].Metadata[course.FieldCredits])
	assert.Equal(t, "4.5", hits[1].Metadata[course.FieldCredits])
	assert.InDelta(t, 0.12, hits[0].Distance, 1e-9)
	assert.Equal(t, "ml", hits[0].Document)

	require.Len(t, queries, 1)
	q := queries[0]
	assert.Contains(t, q, "Course")
	assert.Contains(t, q, "nearVector")
	for _, want := range []string{"semester", "spring", "English, Estonian", "GreaterThanEqual", "study_languages_en"} {
		assert.Contains(t, q, want)
	}
	assert.False(t, strings.Contains(q, "LessThanEqual"), "upper bound equals the default maximum")
}

func TestBackend_QueryErrors(t *testing.T) {
	var queries []string
	srv := fakeWeaviate(t, `{"errors":[{"message":"no such class"}]}`, &queries)

	b, err := NewBackend(srv.URL, "Missing")
	require.NoError(t, err)

	_, err = b.Query(context.Background(), retrieval.Query{Vector: []float32{1}, TopK: 3})
	require.ErrorContains(t, err, "no such class")
}

func TestBackend_EmptyResult(t *testing.T) {
	var queries []string
	srv := fakeWeaviate(t, `{"data":{"Get":{"Course":[]}}}`, &queries)

	b, err := NewBackend(srv.URL, "")
	require.NoError(t, err)

	hits, err := b.Query(context.Background(), retrieval.Query{Vector: []float32{1}, TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotContains(t, queries[0], "where")
}

func TestNewBackend_InvalidURL(t *testing.T) {
	_, err := NewBackend("not a url", "")
	require.Error(t, err)
}
