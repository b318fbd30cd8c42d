package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is matched (via errors.Is) by every error returned from
// Validate.
var ErrInvalidQuery = errors.New("invalid query")

// InvalidQueryError lists every problem found in a query.
type InvalidQueryError struct {
	Problems []string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", strings.Join(e.Problems, "; "))
}

// Is reports ErrInvalidQuery so callers can test with errors.Is.
func (e *InvalidQueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// Validate checks a query against a schema.
//
// Rules:
//  1. From must name the schema's source
//  2. Equals and In only reference scalar fields; In has at least one value
//  3. HasAll only references set fields
//  4. Limit and Offset are non-negative
//  5. Select has at least one order key, each on a scalar field
//
// All problems are collected; the returned error is nil when there are none.
// Validate is a pure function with no side effects.
func Validate(q Query, schema Schema) error {
	v := &validator{schema: schema}
	v.validateQuery(q)
	if len(v.problems) == 0 {
		return nil
	}
	return &InvalidQueryError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	schema   Schema
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Count:
		v.validateFrom(query.From)
		v.validatePredicate(query.Filter)
	case *Count:
		v.validateFrom(query.From)
		v.validatePredicate(query.Filter)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateFrom(from string) {
	if from != v.schema.Source {
		v.addProblem("unknown source %q", from)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.validateFrom(sel.From)
	v.validatePredicate(sel.Filter)

	if sel.Limit < 0 {
		v.addProblem("limit must be non-negative, got %d", sel.Limit)
	}
	if sel.Offset < 0 {
		v.addProblem("offset must be non-negative, got %d", sel.Offset)
	}

	if len(sel.OrderBy) == 0 {
		v.addProblem("select requires at least one order key")
	}
	for _, o := range sel.OrderBy {
		if !v.schema.IsScalar(o.Field) {
			v.addProblem("cannot order by %q", o.Field)
		}
	}
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateScalar("equals", pred.Field)
	case *Equals:
		v.validateScalar("equals", pred.Field)
	case In:
		v.validateIn(pred)
	case *In:
		v.validateIn(*pred)
	case HasAll:
		v.validateHasAll(pred)
	case *HasAll:
		v.validateHasAll(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateScalar(op, field string) {
	if !v.schema.IsScalar(field) {
		v.addProblem("%s: %q is not a scalar field", op, field)
	}
}

func (v *validator) validateIn(in In) {
	v.validateScalar("in", in.Field)
	if len(in.Values) == 0 {
		v.addProblem("in: %q has no values", in.Field)
	}
}

func (v *validator) validateHasAll(h HasAll) {
	if !v.schema.IsSet(h.Field) {
		v.addProblem("has_all: %q is not a set field", h.Field)
	}
}
