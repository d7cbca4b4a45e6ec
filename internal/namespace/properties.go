package namespace

import (
	"confetch/internal/types"
	"strconv"
)

// Properties is the flat key/value view used by extension-less namespaces.
// Values arrive from the service as strings; getters parse on access.
type Properties struct {
	value types.ConfigValue
}

func NewProperties(value types.ConfigValue) *Properties {
	return &Properties{value: value}
}

func (p *Properties) Format() Format { return FormatProperties }

// Keys lists the property names present in the namespace.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.value))
	for k := range p.value {
		keys = append(keys, k)
	}
	return keys
}

func (p *Properties) GetString(key string) (string, bool) {
	s, ok := p.value[key].(string)
	return s, ok
}

func (p *Properties) GetInt(key string) (int64, bool) {
	s, ok := p.value[key].(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func (p *Properties) GetFloat(key string) (float64, bool) {
	s, ok := p.value[key].(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func (p *Properties) GetBool(key string) (bool, bool) {
	s, ok := p.value[key].(string)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	return b, err == nil
}
