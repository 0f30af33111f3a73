package audit

import (
	"encoding/json"
	"strings"
)

const (
	// RedactedValue replaces any value whose key looks sensitive.
	RedactedValue = "[REDACTED]"
	// TruncationMarker is appended when a serialized payload exceeds the cap.
	TruncationMarker = "...[TRUNCATED]"
	// maxRedactDepth bounds recursion over nested/circular structures.
	maxRedactDepth = 10
)

// Key fragments treated as sensitive, matched as substrings of the field
// name after lower-casing and stripping separators, so "api_key", "apiKey"
// and "API-Key" all match.
var sensitiveKeyFragments = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"authorization",
	"ssn",
	"creditcard",
	"cardnumber",
	"cvv",
	"privatekey",
}

// Redact returns a copy of m with sensitive values replaced, walking nested
// maps and slices to maxRedactDepth. The input is never mutated.
func Redact(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := redactMap(m, 0)
	return out
}

func redactMap(m map[string]any, depth int) (map[string]any, bool) {
	if depth >= maxRedactDepth {
		return map[string]any{}, false
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v, depth+1)
	}
	return out, true
}

func redactValue(v any, depth int) any {
	if depth >= maxRedactDepth {
		return RedactedValue
	}
	switch t := v.(type) {
	case map[string]any:
		out, _ := redactMap(t, depth)
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e, depth+1)
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.NewReplacer("_", "", "-", "").Replace(k)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

// BoundedJSON serializes v and truncates the result at maxBytes with an
// explicit marker. Oversized payloads are never silently dropped. Returns
// empty string for nil/empty maps so the column stays NULL-ish.
func BoundedJSON(v map[string]any, maxBytes int) string {
	if len(v) == 0 {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		// Unserializable payloads still leave a trace.
		return `{"_marshal_error":true}`
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return string(data[:maxBytes]) + TruncationMarker
	}
	return string(data)
}
