package family_llm

import (
	"encoding/json"
	"strings"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

// FirstJSONObject returns the first balanced {...} span of text.  Braces
// inside JSON string literals do not count toward the balance.
func FirstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, ok := balancedEnd(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ExtractJSONObject decodes the first balanced JSON object embedded in text
// into v.  Models often wrap their JSON in prose or code fences.
func ExtractJSONObject(text string, v interface{}) error {
	obj, ok := FirstJSONObject(text)
	if !ok {
		return errors.ParseFailure("no JSON object in analysis output", nil).WithDetail(snippet(text))
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return errors.ParseFailure("analysis output is not valid JSON", err).WithDetail(snippet(obj))
	}
	return nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

//Personal.AI order the ending
