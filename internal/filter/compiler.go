package filter

import (
	"strings"

	"ut.ee/course-advisor/internal/course"
)

const (
	DefaultCreditsMin = 1
	DefaultCreditsMax = 36
)

// Selections are the user's facet choices. Empty strings mean "no selection";
// a zero credit range means the full bounds.
type Selections struct {
	Semester   string
	Language   string
	Level      string
	CreditsMin float64
	CreditsMax float64
}

type Bounds struct {
	Min float64
	Max float64
}

type Compiler struct {
	enums   Enumerations
	credits Bounds
}

func NewCompiler(enums Enumerations, credits Bounds) *Compiler {
	if credits.Min == 0 && credits.Max == 0 {
		credits = Bounds{Min: DefaultCreditsMin, Max: DefaultCreditsMax}
	}
	return &Compiler{enums: enums, credits: credits}
}

func (c *Compiler) Enumerations() Enumerations { return c.enums }

func (c *Compiler) CreditBounds() Bounds { return c.credits }

// Compile turns selections into a filter expression. It returns nil when no
// facet narrows the search, a bare leaf when exactly one clause applies, and a
// conjunction otherwise.
func (c *Compiler) Compile(sel Selections) *Expression {
	var clauses []Expression

	if e, ok := c.semester(sel.Semester); ok {
		clauses = append(clauses, e)
	}
	if e, ok := c.composite(course.FieldLanguages, sel.Language); ok {
		clauses = append(clauses, e)
	}
	if e, ok := c.composite(course.FieldLevels, sel.Level); ok {
		clauses = append(clauses, e)
	}
	clauses = append(clauses, c.creditRange(sel.CreditsMin, sel.CreditsMax)...)

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return &clauses[0]
	default:
		e := And(clauses...)
		return &e
	}
}

// composite expands a single component to every stored composite value that
// contains it. Stores only support exact equality, so the expansion is a
// disjunction of equalities.
func (c *Compiler) composite(field, component string) (Expression, bool) {
	if strings.TrimSpace(component) == "" {
		return Expression{}, false
	}
	return anyOf(field, c.enums.Expand(field, component)), true
}

// semester resolves the selection to the spelling stored in the corpus. When
// the enumerations do not list semesters at all, the lowercased selection is
// used as is.
func (c *Compiler) semester(value string) (Expression, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Expression{}, false
	}
	if len(c.enums.Fields[course.FieldSemester]) == 0 {
		return Eq(course.FieldSemester, strings.ToLower(value)), true
	}
	return anyOf(course.FieldSemester, c.enums.Resolve(course.FieldSemester, value)), true
}

// anyOf matches any of values: nothing for none, a bare equality for one.
func anyOf(field string, values []string) Expression {
	switch len(values) {
	case 0:
		return Never(field)
	case 1:
		return Eq(field, values[0])
	}
	ors := make([]Expression, len(values))
	for i, v := range values {
		ors[i] = Eq(field, v)
	}
	return Or(ors...)
}

func (c *Compiler) creditRange(lo, hi float64) []Expression {
	if lo == 0 && hi == 0 {
		return nil
	}
	if lo == 0 {
		lo = c.credits.Min
	}
	if hi == 0 {
		hi = c.credits.Max
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = max(lo, c.credits.Min)
	hi = min(hi, c.credits.Max)

	var out []Expression
	if lo > c.credits.Min {
		out = append(out, Gte(course.FieldCredits, lo))
	}
	if hi < c.credits.Max {
		out = append(out, Lte(course.FieldCredits, hi))
	}
	return out
}
