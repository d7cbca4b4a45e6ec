// Package namespace projects a fetched config tree into the typed view its
// namespace name implies. Views are read-only: they never mutate or re-fetch
// the underlying value.
package namespace

import (
	"confetch/internal/types"
	"strings"
)

// Format is the configuration format a namespace name implies.
type Format int

const (
	FormatProperties Format = iota
	FormatJSON
	FormatYAML
	FormatXML
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatProperties:
		return "properties"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatXML:
		return "xml"
	default:
		return "text"
	}
}

// View is a typed, read-only projection of one namespace's value.
type View interface {
	Format() Format
}

// FormatFor derives the format from the namespace name: no extension means
// properties, known extensions map to their format, anything else is plain
// text.
func FormatFor(name string) Format {
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		return FormatProperties
	}
	switch strings.ToLower(parts[len(parts)-1]) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "xml":
		return FormatXML
	default:
		return FormatText
	}
}

// Of builds the typed view for name out of its fetched value.
// XML namespaces are not supported.
func Of(name string, value types.ConfigValue) (View, error) {
	switch FormatFor(name) {
	case FormatProperties:
		return NewProperties(value), nil
	case FormatJSON:
		return NewJSON(value), nil
	case FormatYAML:
		return NewYAML(value)
	case FormatXML:
		return nil, types.Err(types.ErrUnsupportedFormat, nil, "namespace %s: xml is not supported", name)
	default:
		return NewText(value)
	}
}

// Text is the raw, unparsed content of a plain-text namespace.
type Text struct {
	content string
}

// NewText extracts the content field of a text namespace's value.
func NewText(value types.ConfigValue) (*Text, error) {
	content, ok := value["content"].(string)
	if !ok {
		return nil, types.Err(types.ErrFormatMismatch, nil, "text namespace has no content field")
	}
	return &Text{content: content}, nil
}

func (t *Text) Format() Format  { return FormatText }
func (t *Text) Content() string { return t.content }
