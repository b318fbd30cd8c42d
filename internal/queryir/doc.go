// Package queryir provides the abstract query representation used to read
// Flow records from a backing store.
//
// QueryIR is the boundary between the registry, which decides WHAT to read,
// and the store adapters, which decide HOW:
//
//	[flow.Filter] → [Query IR] → [SQL compiler (SQLite, PostgreSQL)]
//	                           → [Eval (in-memory store, Filter.Matches)]
//
// The same predicate tree is compiled to SQL for the database backends and
// evaluated directly for the in-memory backend. Both paths must select the
// same rows for the same data.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which keeps type switches in
// backends exhaustive:
//
//	switch p := pred.(type) {
//	case Equals:
//	case In:
//	case HasAll:
//	case And:
//	}
//
// FIELDS:
//
// A Schema declares which logical fields exist and whether each one is a
// scalar (id, name) or a set (tags). Equals and In apply to scalars; HasAll
// applies to sets. Validate rejects anything else before it reaches a
// backend.
//
// ORDERING:
//
// Every Select carries an explicit OrderBy. Backends append no ordering of
// their own beyond what the query says, so pagination through Limit and
// Offset is only as stable as the order keys. Callers are expected to end
// OrderBy with a unique field.
package queryir
