// Package weaviatestore serves course searches from a Weaviate class populated by
// an external indexing job.
package weaviatestore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/filter"
	"ut.ee/course-advisor/internal/retrieval"
)

const (
	DefaultClass  = "Course"
	documentField = "rag_text"
)

// textFields are returned with every hit. The class stores eap as a number so
// range filters work natively.
var textFields = []string{
	course.FieldCode,
	course.FieldTitleEN,
	course.FieldTitleET,
	course.FieldSemester,
	course.FieldCity,
	course.FieldLanguages,
	course.FieldLevels,
	course.FieldAssessmentScale,
	course.FieldDescriptionEN,
	course.FieldDescriptionET,
}

type Backend struct {
	client *weaviate.Client
	class  string
}

func NewBackend(rawURL, class string) (*Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate URL %q", rawURL)
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: u.Host, Scheme: u.Scheme})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	if class == "" {
		class = DefaultClass
	}
	return &Backend{client: client, class: class}, nil
}

func (b *Backend) Name() string { return "weaviate" }

func (b *Backend) Query(ctx context.Context, q retrieval.Query) ([]retrieval.Hit, error) {
	fields := make([]graphql.Field, 0, len(textFields)+3)
	for _, f := range textFields {
		fields = append(fields, graphql.Field{Name: f})
	}
	fields = append(fields,
		graphql.Field{Name: course.FieldCredits},
		graphql.Field{Name: documentField},
		graphql.Field{Name: "_additional { distance }"},
	)

	nearVector := b.client.GraphQL().NearVectorArgBuilder().WithVector(q.Vector)
	get := b.client.GraphQL().Get().
		WithClassName(b.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(q.TopK)
	if q.Filter != nil {
		get = get.WithWhere(Where(*q.Filter))
	}

	result, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search error: %s", result.Errors[0].Message)
	}
	return b.parseHits(result), nil
}

// Where translates a filter expression into a Weaviate where clause.
func Where(e filter.Expression) *filters.WhereBuilder {
	switch e.Op {
	case filter.OpAnd, filter.OpOr:
		operands := make([]*filters.WhereBuilder, len(e.Operands))
		for i, o := range e.Operands {
			operands[i] = Where(o)
		}
		op := filters.And
		if e.Op == filter.OpOr {
			op = filters.Or
		}
		return filters.Where().WithOperator(op).WithOperands(operands)
	case filter.OpGte:
		return filters.Where().
			WithPath([]string{e.Field}).
			WithOperator(filters.GreaterThanEqual).
			WithValueNumber(e.Number)
	case filter.OpLte:
		return filters.Where().
			WithPath([]string{e.Field}).
			WithOperator(filters.LessThanEqual).
			WithValueNumber(e.Number)
	default:
		return filters.Where().
			WithPath([]string{e.Field}).
			WithOperator(filters.Equal).
			WithValueText(e.Value)
	}
}

func (b *Backend) parseHits(result *models.GraphQLResponse) []retrieval.Hit {
	hits := []retrieval.Hit{}
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return hits
	}
	objects, ok := data[b.class].([]interface{})
	if !ok {
		return hits
	}

	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}
		meta := make(map[string]string, len(textFields)+1)
		for _, f := range textFields {
			meta[f] = getString(m, f)
		}
		if n, ok := m[course.FieldCredits].(float64); ok {
			meta[course.FieldCredits] = strconv.FormatFloat(n, 'f', -1, 64)
		} else {
			meta[course.FieldCredits] = getString(m, course.FieldCredits)
		}

		distance := 1.0
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				distance = d
			}
		}
		hits = append(hits, retrieval.Hit{Metadata: meta, Distance: distance, Document: getString(m, documentField)})
	}
	return hits
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
