package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

// volatileKeys change on every run and are replaced before comparison.
var volatileKeys = map[string]bool{
	"sessionId": true,
	"startedAt": true,
}

// MarshalNormalized renders data as indented JSON with object keys sorted,
// volatile values masked and workRoot replaced by "<root>".
func MarshalNormalized(t *testing.T, workRoot string, data any) []byte {
	t.Helper()

	// Round-trip through JSON to get plain maps and slices
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	out, err := json.MarshalIndent(normalizeValue(generic, workRoot), "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return append(out, '\n')
}

func normalizeValue(v any, workRoot string) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if volatileKeys[k] {
				val[k] = "<volatile>"
				continue
			}
			val[k] = normalizeValue(item, workRoot)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item, workRoot)
		}
		return val
	case string:
		if workRoot != "" {
			return strings.ReplaceAll(val, workRoot, "<root>")
		}
		return val
	default:
		return val
	}
}
