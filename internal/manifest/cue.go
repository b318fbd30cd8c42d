package manifest

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// parseCUE unifies the manifest with the embedded schema and extracts the
// flows struct in declaration order.
func parseCUE(data []byte, filename string) ([]definition, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}

	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, filename)
	}

	flowsVal := value.LookupPath(cue.ParsePath("flows"))
	if !flowsVal.Exists() {
		return []definition{}, nil
	}

	iter, err := flowsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, filename)
	}

	var defs []definition
	for iter.Next() {
		name := iter.Label()

		var tags []string
		if err := iter.Value().LookupPath(cue.ParsePath("tags")).Decode(&tags); err != nil {
			return nil, formatCUEError(err, filename)
		}

		defs = append(defs, definition{
			field: fmt.Sprintf("flows.%q", name),
			name:  name,
			tags:  tags,
			pos:   iter.Value().Pos(),
		})
	}
	return defs, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, filename string) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{File: filename, Message: err.Error()}
	}

	// Return first error with position info
	first := errs[0]
	e := &Error{File: filename, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
