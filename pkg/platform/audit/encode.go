package audit

import (
	"encoding/json"
	"fmt"
)

// Redactor replaces a property value before it is encoded into a record.
// Returning value unchanged keeps it.
type Redactor func(kind, property string, value any) any

// RedactProperties masks the named properties with mask regardless of kind.
func RedactProperties(mask string, properties ...string) Redactor {
	set := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		set[p] = struct{}{}
	}
	return func(_ string, property string, value any) any {
		if _, ok := set[property]; ok {
			return mask
		}
		return value
	}
}

func redactMap(r Redactor, kind string, values map[string]any) map[string]any {
	if r == nil || len(values) == 0 {
		return values
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = r(kind, k, v)
	}
	return out
}

// encodeValues renders values as a JSON object. encoding/json sorts map keys,
// so the output does not depend on map iteration order. A value that cannot
// be encoded is replaced by its fmt.Sprint form; encoding never fails.
func encodeValues(values map[string]any) string {
	if values == nil {
		values = map[string]any{}
	}
	if b, err := json.Marshal(values); err == nil {
		return string(b)
	}
	safe := make(map[string]any, len(values))
	for k, v := range values {
		if _, err := json.Marshal(v); err != nil {
			safe[k] = fmt.Sprint(v)
			continue
		}
		safe[k] = v
	}
	b, err := json.Marshal(safe)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// encodeChanges renders the changes payload for op: both maps for updates,
// otherwise whichever side is populated.
func encodeChanges(op Operation, oldValues, newValues map[string]any) string {
	switch op {
	case OperationUpdate:
		return `{"Old":` + encodeValues(oldValues) + `,"New":` + encodeValues(newValues) + `}`
	case OperationDelete:
		return encodeValues(oldValues)
	default:
		if len(newValues) == 0 && len(oldValues) > 0 {
			return encodeValues(oldValues)
		}
		return encodeValues(newValues)
	}
}
