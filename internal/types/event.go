package types

// ConfigValue is the decoded JSON tree the remote service returns for one
// namespace: maps, arrays and scalars as produced by the JSON decoder.
type ConfigValue = map[string]any

// ChangeEvent is produced once per fetch that initializes or replaces a
// namespace's memory value. OldValue is nil on the initial fill. Changes
// holds the top-level scalar keys whose values differ between the two,
// keyed to their new values; keys removed by the update map to nil.
type ChangeEvent struct {
	Namespace string         `json:"namespace"`
	OldValue  ConfigValue    `json:"old_value,omitempty"`
	NewValue  ConfigValue    `json:"new_value"`
	Changes   map[string]any `json:"changes,omitempty"`
}

// CachedRecord is the unit the durable tier persists: the fetched config and
// the epoch-seconds timestamp of its retrieval. A record is stale once
// now - Timestamp exceeds the configured TTL.
type CachedRecord struct {
	Timestamp int64       `json:"timestamp" dynamodbav:"timestamp"`
	Config    ConfigValue `json:"config" dynamodbav:"config"`
}

// NewChangeEvent diffs old against next at the top level and wraps both in
// an event. Only scalar entries (everything but nested maps and arrays)
// participate in the Changes map, matching what the remote delta feed
// reports.
func NewChangeEvent(namespace string, old, next ConfigValue) ChangeEvent {
	changes := make(map[string]any)
	for k, v := range next {
		if !isScalar(v) {
			continue
		}
		if old == nil || old[k] != v {
			changes[k] = v
		}
	}
	for k, v := range old {
		if !isScalar(v) {
			continue
		}
		if _, ok := next[k]; !ok {
			changes[k] = nil
		}
	}
	return ChangeEvent{
		Namespace: namespace,
		OldValue:  old,
		NewValue:  next,
		Changes:   changes,
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

// CloneValue deep-copies a config tree so cached state can never be mutated
// through a value handed to a caller.
func CloneValue(v ConfigValue) ConfigValue {
	if v == nil {
		return nil
	}
	out := make(ConfigValue, len(v))
	for k, val := range v {
		out[k] = cloneAny(val)
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneValue(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}
