// Package flow defines the Flow entity stored by the registry and the
// declarative Filter used to select flows.
//
// A Flow is a named workflow template. Its id is assigned once by the
// registry and never reused; its name is unique across the store; its tags
// are a set used only for filtering.
//
// Filter is the only query surface exposed to callers. It is translated into
// a queryir predicate exactly once (Filter.Predicate), and the same predicate
// is evaluated in memory by Filter.Matches, so a filter selects the same
// flows whether it runs against a database or a slice.
package flow
