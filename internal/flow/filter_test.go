package flow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowreg/internal/queryir"
)

func mustFlow(t *testing.T, id, name string, tags ...string) Flow {
	t.Helper()
	f, err := New(name, tags...)
	require.NoError(t, err)
	f.ID = uuid.MustParse(id)
	return f
}

const (
	id1 = "00000000-0000-7000-8000-000000000001"
	id2 = "00000000-0000-7000-8000-000000000002"
	id3 = "00000000-0000-7000-8000-000000000003"
)

func TestFilter_ZeroMatchesEverything(t *testing.T) {
	var f Filter

	assert.True(t, f.IsZero())
	assert.Nil(t, f.Predicate())
	assert.True(t, f.Matches(mustFlow(t, id1, "anything", "x")))
	assert.True(t, f.Matches(mustFlow(t, id2, "untagged")))
}

func TestFilter_EmptySlicesImposeNoConstraint(t *testing.T) {
	f := Filter{IDs: []uuid.UUID{}, Names: []string{}, TagsAll: []string{}}

	assert.True(t, f.IsZero())
	assert.Nil(t, f.Predicate())
}

func TestFilter_Predicate(t *testing.T) {
	testCases := []struct {
		name   string
		filter Filter
		want   queryir.Predicate
	}{
		{
			name:   "ids only",
			filter: Filter{IDs: []uuid.UUID{uuid.MustParse(id1)}},
			want:   queryir.In{Field: FieldID, Values: []string{id1}},
		},
		{
			name:   "names normalized",
			filter: Filter{Names: []string{" my-flow-1 "}},
			want:   queryir.In{Field: FieldName, Values: []string{"my-flow-1"}},
		},
		{
			name:   "tags deduplicated and sorted",
			filter: Filter{TagsAll: []string{"db", "blue", "db"}},
			want:   queryir.HasAll{Field: FieldTags, Values: []string{"blue", "db"}},
		},
		{
			name:   "all fields combine with and",
			filter: Filter{IDs: []uuid.UUID{uuid.MustParse(id2)}, Names: []string{"n"}, TagsAll: []string{"t"}},
			want: queryir.And{Predicates: []queryir.Predicate{
				queryir.In{Field: FieldID, Values: []string{id2}},
				queryir.In{Field: FieldName, Values: []string{"n"}},
				queryir.HasAll{Field: FieldTags, Values: []string{"t"}},
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.filter.Predicate()
			assert.Equal(t, tc.want, got)
			assert.NoError(t, queryir.Validate(queryir.Count{From: Source, Filter: got}, Schema))
		})
	}
}

func TestFilter_TagsAllSubsetSemantics(t *testing.T) {
	f := mustFlow(t, id1, "f", "a", "b", "c")

	assert.True(t, Filter{TagsAll: []string{"a", "b"}}.Matches(f))
	assert.True(t, Filter{TagsAll: []string{"a", "b", "c"}}.Matches(f))
	assert.False(t, Filter{TagsAll: []string{"a", "d"}}.Matches(f))
}

func TestFilter_MatchesScenario(t *testing.T) {
	f1 := mustFlow(t, id1, "f1", "db", "blue")
	f2 := mustFlow(t, id2, "f2", "db")
	f3 := mustFlow(t, id3, "f3")
	all := []Flow{f1, f2, f3}

	selectNames := func(filter Filter) []string {
		var names []string
		for _, f := range all {
			if filter.Matches(f) {
				names = append(names, f.Name)
			}
		}
		return names
	}

	assert.Equal(t, []string{"f1", "f2"}, selectNames(Filter{TagsAll: []string{"db"}}))
	assert.Equal(t, []string{"f1"}, selectNames(Filter{TagsAll: []string{"db", "blue"}}))
	assert.Equal(t, []string{"f2", "f3"}, selectNames(Filter{Names: []string{"f2", "f3"}}))
	assert.Equal(t, []string{"f1", "f2"}, selectNames(Filter{IDs: []uuid.UUID{f1.ID, f2.ID}}))
	assert.Equal(t, []string{"f2"}, selectNames(Filter{Names: []string{"f2", "f3"}, TagsAll: []string{"db"}}))
	assert.Nil(t, selectNames(Filter{Names: []string{"missing"}}))
}
