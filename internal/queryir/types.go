package queryir

// Query represents an abstract read query.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: rows matching a filter, ordered and paginated
//   - Count: number of rows matching a filter
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: scalar field = value
//   - In: scalar field ∈ values
//   - HasAll: set field ⊇ values
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Order is one ORDER BY key.
type Order struct {
	Field string
	Desc  bool
}

// Select reads rows from a source.
//
// Semantics:
//
//	SELECT * FROM <from> WHERE <filter> ORDER BY <order_by> LIMIT <limit> OFFSET <offset>
//
// Filter nil means no constraint. Limit 0 means no bound.
type Select struct {
	From    string
	Filter  Predicate
	OrderBy []Order
	Limit   int
	Offset  int
}

func (Select) queryNode() {}

// Count counts rows from a source.
//
// Semantics:
//
//	SELECT COUNT(*) FROM <from> WHERE <filter>
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// Equals matches rows whose scalar field equals Value.
//
// Example:
//
//	Equals{Field: "name", Value: "etl-nightly"}
//
// Translates to SQL:
//
//	name = ?
type Equals struct {
	Field string
	Value string
}

func (Equals) predicateNode() {}

// In matches rows whose scalar field is one of Values.
//
// Values must not be empty; an empty membership test is rejected by
// Validate rather than silently matching nothing.
//
// Example:
//
//	In{Field: "name", Values: []string{"a", "b"}}
//
// Translates to SQL:
//
//	name IN (?, ?)
type In struct {
	Field  string
	Values []string
}

func (In) predicateNode() {}

// HasAll matches rows whose set field contains every element of Values.
// The row may hold additional elements. Empty Values is vacuously true.
//
// Example:
//
//	HasAll{Field: "tags", Values: []string{"db", "blue"}}
//
// matches a row tagged {db, blue, prod} but not one tagged {db}.
type HasAll struct {
	Field  string
	Values []string
}

func (HasAll) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// Empty Predicates means "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Schema describes the logical fields of a source.
type Schema struct {
	Source  string
	Scalars []string
	Sets    []string
}

// IsScalar reports whether field is a scalar field of the schema.
func (s Schema) IsScalar(field string) bool {
	for _, f := range s.Scalars {
		if f == field {
			return true
		}
	}
	return false
}

// IsSet reports whether field is a set-valued field of the schema.
func (s Schema) IsSet(field string) bool {
	for _, f := range s.Sets {
		if f == field {
			return true
		}
	}
	return false
}

// Conjuncts flattens nested And predicates into a single list, dropping
// nil entries. A nil predicate yields an empty list.
func Conjuncts(p Predicate) []Predicate {
	if p == nil {
		return nil
	}
	var and And
	switch pred := p.(type) {
	case And:
		and = pred
	case *And:
		and = *pred
	default:
		return []Predicate{p}
	}
	var out []Predicate
	for _, sub := range and.Predicates {
		out = append(out, Conjuncts(sub)...)
	}
	return out
}
