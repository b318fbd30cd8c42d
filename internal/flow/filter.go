package flow

import (
	"github.com/google/uuid"

	"github.com/roach88/flowreg/internal/queryir"
)

// Schema is the queryir schema of the flows source.
var Schema = queryir.Schema{
	Source:  Source,
	Scalars: []string{FieldID, FieldName},
	Sets:    []string{FieldTags},
}

// DefaultOrder sorts by name with id as the unique tie-break, which makes
// limit/offset pagination deterministic.
var DefaultOrder = []queryir.Order{
	{Field: FieldName},
	{Field: FieldID},
}

// Filter selects flows. Populated fields combine with AND; an empty field
// imposes no constraint, so the zero Filter matches every flow.
type Filter struct {
	// IDs matches flows whose id is a member.
	IDs []uuid.UUID `json:"ids,omitempty" yaml:"ids,omitempty"`
	// Names matches flows whose name is a member.
	Names []string `json:"names,omitempty" yaml:"names,omitempty"`
	// TagsAll matches flows whose tags are a superset of these tags.
	TagsAll []string `json:"tags_all,omitempty" yaml:"tags_all,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return len(f.IDs) == 0 && len(f.Names) == 0 && len(f.TagsAll) == 0
}

// Predicate translates the filter into the query IR.
// Returns nil for the zero filter. Names and tags are normalised the same
// way New normalises them.
func (f Filter) Predicate() queryir.Predicate {
	var preds []queryir.Predicate

	if len(f.IDs) > 0 {
		ids := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = id.String()
		}
		preds = append(preds, queryir.In{Field: FieldID, Values: ids})
	}

	if len(f.Names) > 0 {
		names := make([]string, len(f.Names))
		for i, name := range f.Names {
			names[i] = Normalize(name)
		}
		preds = append(preds, queryir.In{Field: FieldName, Values: names})
	}

	if len(f.TagsAll) > 0 {
		preds = append(preds, queryir.HasAll{Field: FieldTags, Values: NewTagSet(f.TagsAll...)})
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return queryir.And{Predicates: preds}
	}
}

// Matches evaluates the filter against a flow in memory.
func (f Filter) Matches(fl Flow) bool {
	return queryir.Eval(f.Predicate(), fl)
}
