package compose

import "fmt"

// cloneValue returns a shallow copy for sequences and mappings and the value
// itself for scalars, mirroring how layers are copied into a merge target.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = item
		}
		return out
	case []any:
		out := make([]any, len(v))
		copy(out, v)
		return out
	default:
		return value
	}
}

// deepCloneValue copies nested sequences and mappings all the way down.
func deepCloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCloneValue(item)
		}
		return out
	default:
		return value
	}
}

// toString renders a scalar the way it would appear in a flat KEY=VAL form.
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return fmt.Sprintf("%t", val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
