package flow

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Logical field names shared by the filter, the query IR and the stores.
const (
	Source    = "flows"
	FieldID   = "id"
	FieldName = "name"
	FieldTags = "tags"
)

// Flow is a named workflow-definition record.
type Flow struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Tags    TagSet    `json:"tags"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// New builds a Flow with a normalised name and tag set.
// The returned Flow has no id; the registry assigns one on create.
func New(name string, tags ...string) (Flow, error) {
	f := Flow{
		Name: Normalize(name),
		Tags: NewTagSet(tags...),
	}
	if err := f.Validate(); err != nil {
		return Flow{}, err
	}
	return f, nil
}

// Validate checks the caller-supplied fields of a flow.
func (f Flow) Validate() error {
	if f.Name == "" {
		return &ValidationError{Field: FieldName, Message: "name is required"}
	}
	if !utf8.ValidString(f.Name) {
		return &ValidationError{Field: FieldName, Message: "name is not valid UTF-8"}
	}
	if f.Name != Normalize(f.Name) {
		return &ValidationError{Field: FieldName, Message: "name is not normalized"}
	}
	for _, tag := range f.Tags {
		if tag == "" {
			return &ValidationError{Field: FieldTags, Message: "tags must be non-empty strings"}
		}
		if !utf8.ValidString(tag) {
			return &ValidationError{Field: FieldTags, Message: fmt.Sprintf("tag %q is not valid UTF-8", tag)}
		}
	}
	return nil
}

// Scalar implements queryir.Record.
func (f Flow) Scalar(field string) (string, bool) {
	switch field {
	case FieldID:
		return f.ID.String(), true
	case FieldName:
		return f.Name, true
	default:
		return "", false
	}
}

// Set implements queryir.Record.
func (f Flow) Set(field string) ([]string, bool) {
	if field == FieldTags {
		return f.Tags, true
	}
	return nil, false
}

// Normalize trims surrounding whitespace and converts s to Unicode NFC so
// canonically equivalent names and tags compare equal. Invalid UTF-8 is
// returned unchanged so Validate can reject it.
func Normalize(s string) string {
	if !utf8.ValidString(s) {
		return s
	}
	return norm.NFC.String(strings.TrimSpace(s))
}

// TagSet is a sorted set of tags without duplicates.
type TagSet []string

// NewTagSet normalises, sorts and de-duplicates tags.
// The result is never nil, so an untagged flow serialises as [].
func NewTagSet(tags ...string) TagSet {
	seen := make(map[string]struct{}, len(tags))
	set := make(TagSet, 0, len(tags))
	for _, tag := range tags {
		tag = Normalize(tag)
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		set = append(set, tag)
	}
	sort.Strings(set)
	return set
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	i := sort.SearchStrings(s, tag)
	return i < len(s) && s[i] == tag
}

// ContainsAll reports whether every tag is in the set.
func (s TagSet) ContainsAll(tags ...string) bool {
	for _, tag := range tags {
		if !s.Has(tag) {
			return false
		}
	}
	return true
}
