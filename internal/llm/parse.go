package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raine/estate-pricer/internal/item"
)

var errNoJSON = errors.New("no JSON items found in response")

// ParseItems extracts raw item objects from a model response. It accepts a
// bare JSON array, an array wrapped in code fences or prose, or a single
// object. Array elements that are not objects are skipped.
func ParseItems(text string) ([]item.Raw, error) {
	text = stripCodeFences(text)
	if text == "" {
		return nil, errNoJSON
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		if raws, ok := toRaws(value); ok {
			return raws, nil
		}
	}

	// An object that opens before any array is a single item whose fields
	// may themselves contain arrays.
	arr, arrStart, hasArr := firstJSONArray(text)
	objStart := strings.IndexByte(text, '{')
	if hasArr && (objStart < 0 || arrStart < objStart) {
		raws, _ := toRaws(arr)
		return raws, nil
	}

	if obj, err := extractJSONObject(text); err == nil {
		var m map[string]any
		if err := json.Unmarshal([]byte(obj), &m); err == nil {
			return []item.Raw{item.Raw(m)}, nil
		}
	}

	if hasArr {
		raws, _ := toRaws(arr)
		return raws, nil
	}

	return nil, fmt.Errorf("%w: %s", errNoJSON, truncate(text, 200))
}

// stripCodeFences removes markdown fence lines such as ```json and ```.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), "```") {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// firstJSONArray returns the first '['-started substring that decodes as a
// complete JSON array, and where it starts.
func firstJSONArray(text string) ([]any, int, bool) {
	for i := strings.IndexByte(text, '['); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var arr []any
		if err := dec.Decode(&arr); err == nil {
			return arr, i, true
		}
		next := strings.IndexByte(text[i+1:], '[')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, -1, false
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. Returns the extracted JSON string or an error.
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}

func toRaws(value any) ([]item.Raw, bool) {
	switch v := value.(type) {
	case []any:
		raws := make([]item.Raw, 0, len(v))
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				raws = append(raws, item.Raw(m))
			}
		}
		return raws, true
	case map[string]any:
		return []item.Raw{item.Raw(v)}, true
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
