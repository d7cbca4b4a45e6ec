package namespace

import (
	"confetch/internal/types"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
)

// JSON is the arbitrary-structure view for *.json namespaces.
type JSON struct {
	value types.ConfigValue
}

func NewJSON(value types.ConfigValue) *JSON {
	return &JSON{value: value}
}

func (j *JSON) Format() Format { return FormatJSON }

// Value returns a copy of the decoded tree.
func (j *JSON) Value() types.ConfigValue {
	return types.CloneValue(j.value)
}

// Unmarshal decodes the namespace value into out, typically a struct with
// json tags.
func (j *JSON) Unmarshal(out any) error {
	raw, err := json.Marshal(j.value)
	if err != nil {
		return types.Err(types.ErrFormatMismatch, err, "re-encoding json namespace")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return types.Err(types.ErrFormatMismatch, err, "decoding json namespace")
	}
	return nil
}

// Query evaluates a JMESPath expression against the namespace value.
func (j *JSON) Query(expression string) (any, error) {
	v, err := jmespath.Search(expression, map[string]any(j.value))
	if err != nil {
		return nil, types.Err(types.ErrFormatMismatch, err, "jmespath %q", expression)
	}
	return v, nil
}
