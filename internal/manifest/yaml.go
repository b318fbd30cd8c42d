package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlManifest struct {
	Flows []yamlFlow `yaml:"flows"`
}

type yamlFlow struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags"`
}

func parseYAML(data []byte, filename string) ([]definition, error) {
	var m yamlManifest

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{File: filename, Message: err.Error()}
	}

	defs := make([]definition, len(m.Flows))
	for i, f := range m.Flows {
		defs[i] = definition{
			field: fmt.Sprintf("flows[%d]", i),
			name:  f.Name,
			tags:  f.Tags,
		}
	}
	return defs, nil
}
