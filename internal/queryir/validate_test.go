package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	Source:  "flows",
	Scalars: []string{"id", "name"},
	Sets:    []string{"tags"},
}

func byName() []Order {
	return []Order{{Field: "name"}, {Field: "id"}}
}

func TestValidate_ValidSelect(t *testing.T) {
	query := Select{
		From: "flows",
		Filter: And{Predicates: []Predicate{
			In{Field: "name", Values: []string{"a", "b"}},
			HasAll{Field: "tags", Values: []string{"db"}},
			Equals{Field: "id", Value: "x"},
		}},
		OrderBy: byName(),
		Limit:   10,
		Offset:  5,
	}

	assert.NoError(t, Validate(query, testSchema))
}

func TestValidate_PointerTypes(t *testing.T) {
	query := &Select{
		From:    "flows",
		Filter:  &And{Predicates: []Predicate{&In{Field: "id", Values: []string{"x"}}, &HasAll{Field: "tags"}}},
		OrderBy: byName(),
	}

	assert.NoError(t, Validate(query, testSchema))
	assert.NoError(t, Validate(&Count{From: "flows", Filter: &Equals{Field: "name", Value: "a"}}, testSchema))
}

func TestValidate_NilFilterIsValid(t *testing.T) {
	assert.NoError(t, Validate(Select{From: "flows", OrderBy: byName()}, testSchema))
	assert.NoError(t, Validate(Count{From: "flows"}, testSchema))
}

func TestValidate_Problems(t *testing.T) {
	testCases := []struct {
		name    string
		query   Query
		problem string
	}{
		{
			name:    "nil query",
			query:   nil,
			problem: "nil query",
		},
		{
			name:    "unknown source",
			query:   Select{From: "runs", OrderBy: byName()},
			problem: `unknown source "runs"`,
		},
		{
			name:    "negative limit",
			query:   Select{From: "flows", OrderBy: byName(), Limit: -1},
			problem: "limit must be non-negative",
		},
		{
			name:    "negative offset",
			query:   Select{From: "flows", OrderBy: byName(), Offset: -3},
			problem: "offset must be non-negative",
		},
		{
			name:    "missing order",
			query:   Select{From: "flows"},
			problem: "at least one order key",
		},
		{
			name:    "order by set field",
			query:   Select{From: "flows", OrderBy: []Order{{Field: "tags"}}},
			problem: `cannot order by "tags"`,
		},
		{
			name:    "in on set field",
			query:   Count{From: "flows", Filter: In{Field: "tags", Values: []string{"db"}}},
			problem: `in: "tags" is not a scalar field`,
		},
		{
			name:    "empty in",
			query:   Count{From: "flows", Filter: In{Field: "name"}},
			problem: `in: "name" has no values`,
		},
		{
			name:    "has_all on scalar field",
			query:   Count{From: "flows", Filter: HasAll{Field: "name", Values: []string{"a"}}},
			problem: `has_all: "name" is not a set field`,
		},
		{
			name:    "equals on unknown field",
			query:   Count{From: "flows", Filter: Equals{Field: "owner", Value: "a"}},
			problem: `equals: "owner" is not a scalar field`,
		},
		{
			name: "nested problem",
			query: Count{From: "flows", Filter: And{Predicates: []Predicate{
				In{Field: "name", Values: []string{"a"}},
				And{Predicates: []Predicate{HasAll{Field: "id"}}},
			}}},
			problem: `has_all: "id" is not a set field`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.query, testSchema)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))
			assert.Contains(t, err.Error(), tc.problem)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	query := Select{
		From:   "runs",
		Limit:  -1,
		Offset: -1,
	}

	err := Validate(query, testSchema)
	require.Error(t, err)

	var invalid *InvalidQueryError
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid.Problems, 4)
}
