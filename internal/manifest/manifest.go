// Package manifest loads flow definitions from YAML or CUE files.
//
// YAML manifests list flows in order:
//
//	flows:
//	  - name: etl-nightly
//	    tags: [db, nightly]
//	  - name: report
//
// CUE manifests key flows by name and are unified with an embedded schema
// before extraction:
//
//	flows: {
//	    "etl-nightly": tags: ["db", "nightly"]
//	    report: {}
//	}
//
// Every definition passes through flow.New, so names and tags come out
// normalised and validated. Two definitions whose names normalise to the
// same string are rejected.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/flowreg/internal/flow"
)

// Format is a manifest encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatCUE
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatCUE:
		return "cue"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return 0, fmt.Errorf("unsupported manifest extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// Error reports a rejected manifest with the location of the problem when
// one is known.
type Error struct {
	File    string
	Field   string // e.g. flows[2].name or flows."etl"
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	} else if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Load reads the manifest at path.
func Load(path string) ([]flow.Flow, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, &Error{File: path, Message: err.Error()}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(data, format, path)
}

// Parse decodes a manifest. filename is used in error messages only.
// The result is never nil.
func Parse(data []byte, format Format, filename string) ([]flow.Flow, error) {
	var (
		defs []definition
		err  error
	)
	switch format {
	case FormatYAML:
		defs, err = parseYAML(data, filename)
	case FormatCUE:
		defs, err = parseCUE(data, filename)
	default:
		return nil, &Error{File: filename, Message: fmt.Sprintf("unsupported format %s", format)}
	}
	if err != nil {
		return nil, err
	}

	return build(defs, filename)
}

// definition is one decoded entry before validation.
type definition struct {
	field string
	name  string
	tags  []string
	pos   token.Pos
}

func build(defs []definition, filename string) ([]flow.Flow, error) {
	flows := make([]flow.Flow, 0, len(defs))
	seen := make(map[string]string, len(defs))

	for _, d := range defs {
		f, err := flow.New(d.name, d.tags...)
		if err != nil {
			return nil, &Error{File: filename, Field: d.field, Message: err.Error(), Pos: d.pos}
		}
		if prev, ok := seen[f.Name]; ok {
			return nil, &Error{
				File:    filename,
				Field:   d.field,
				Message: fmt.Sprintf("duplicate flow name %q (also at %s)", f.Name, prev),
				Pos:     d.pos,
			}
		}
		seen[f.Name] = d.field
		flows = append(flows, f)
	}

	return flows, nil
}
