package namespace

import (
	"confetch/internal/types"

	"github.com/goccy/go-yaml"
)

// YAML is the view for *.yaml / *.yml namespaces. The service wraps the raw
// document in a JSON object's content field; absence of that field is a
// format error.
type YAML struct {
	content string
	doc     map[string]any
}

func NewYAML(value types.ConfigValue) (*YAML, error) {
	content, ok := value["content"].(string)
	if !ok {
		return nil, types.Err(types.ErrFormatMismatch, nil, "yaml namespace has no content field")
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, types.Err(types.ErrFormatMismatch, err, "parsing yaml namespace content")
	}
	return &YAML{content: content, doc: doc}, nil
}

func (y *YAML) Format() Format { return FormatYAML }

// Content returns the raw document text as served.
func (y *YAML) Content() string { return y.content }

// Document returns the parsed top-level mapping.
func (y *YAML) Document() map[string]any { return y.doc }

// Unmarshal decodes the document into out, typically a struct with yaml tags.
func (y *YAML) Unmarshal(out any) error {
	if err := yaml.Unmarshal([]byte(y.content), out); err != nil {
		return types.Err(types.ErrFormatMismatch, err, "decoding yaml namespace")
	}
	return nil
}
