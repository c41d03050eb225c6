package filter

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ut.ee/course-advisor/internal/course"
)

//go:embed facets.yaml
var defaultFacets []byte

// Enumerations lists, per multi-value field, every composite value stored in
// the index. It is versioned so a rebuilt corpus can ship its own copy.
type Enumerations struct {
	Version string              `yaml:"version"`
	Fields  map[string][]string `yaml:"fields"`
}

// DefaultEnumerations returns the enumerations compiled into the binary.
func DefaultEnumerations() Enumerations {
	e, err := ParseEnumerations(defaultFacets)
	if err != nil {
		panic(fmt.Sprintf("filter: embedded facets are invalid: %v", err))
	}
	return e
}

// LoadEnumerations reads enumerations from path, or the embedded defaults when
// path is empty.
func LoadEnumerations(path string) (Enumerations, error) {
	if path == "" {
		return DefaultEnumerations(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Enumerations{}, fmt.Errorf("failed to read facets file: %w", err)
	}
	return ParseEnumerations(data)
}

func ParseEnumerations(data []byte) (Enumerations, error) {
	var e Enumerations
	if err := yaml.Unmarshal(data, &e); err != nil {
		return Enumerations{}, fmt.Errorf("failed to parse facets: %w", err)
	}
	if e.Version == "" {
		return Enumerations{}, fmt.Errorf("facets file has no version")
	}
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	return e, nil
}

// Marshal renders e in the same YAML layout ParseEnumerations accepts.
func (e Enumerations) Marshal() ([]byte, error) {
	return yaml.Marshal(e)
}

// Expand returns the stored composite values of field that contain component
// as one of their comma-separated parts, in enumeration order.
func (e Enumerations) Expand(field, component string) []string {
	component = strings.TrimSpace(component)
	if component == "" {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, v := range e.Fields[field] {
		if seen[v] {
			continue
		}
		for _, part := range course.Components(v) {
			if strings.EqualFold(part, component) {
				out = append(out, v)
				seen[v] = true
				break
			}
		}
	}
	return out
}

// Resolve returns the stored values of a single-valued field that equal value
// ignoring case, in enumeration order.
func (e Enumerations) Resolve(field, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	var out []string
	for _, v := range e.Fields[field] {
		if strings.EqualFold(strings.TrimSpace(v), value) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Options returns the distinct single components of field, sorted, for use as
// user-facing choices.
func (e Enumerations) Options(field string) []string {
	set := map[string]struct{}{}
	for _, v := range e.Fields[field] {
		for _, part := range course.Components(v) {
			set[part] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
