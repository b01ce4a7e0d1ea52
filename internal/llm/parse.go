package llm

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ParseOrDefault decodes a model's JSON answer into a T.
//
// Markdown code fences and surrounding prose are stripped and common
// syntax slips are repaired before decoding. When decoding fails, or
// validate (if non-nil) rejects the value, def is returned with ok=false.
func ParseOrDefault[T any](raw string, def T, validate func(*T) error) (T, bool) {
	text := extractJSON(stripFences(raw))
	if text == "" {
		return def, false
	}

	var out T
	if err := json.Unmarshal([]byte(repairJSON(text)), &out); err != nil {
		return def, false
	}
	if validate != nil {
		if err := validate(&out); err != nil {
			return def, false
		}
	}
	return out, true
}

// stripFences removes a surrounding ``` or ```json block
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSON trims prose around the outermost object or array
func extractJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

// repairJSON fixes unquoted or half-quoted object keys and trailing commas.
// Text inside string literals is never changed.
func repairJSON(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src)+16)

	inString, escaped := false, false
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			out = append(out, ch)
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
			out = append(out, ch)

		case ',':
			j := skipSpace(src, i+1)
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			out = append(out, ch)
			i = repairKey(src, i+1, &out) - 1

		case '{':
			out = append(out, ch)
			i = repairKey(src, i+1, &out) - 1

		default:
			out = append(out, ch)
		}
	}

	return string(out)
}

// repairKey copies whitespace from pos and quotes a bare identifier key
// found there. It returns the index to continue scanning from.
func repairKey(src []rune, pos int, out *[]rune) int {
	j := skipSpace(src, pos)
	*out = append(*out, src[pos:j]...)

	if j >= len(src) || !(unicode.IsLetter(src[j]) || src[j] == '_') {
		return j
	}

	k := j
	for k < len(src) && (unicode.IsLetter(src[k]) || unicode.IsDigit(src[k]) || src[k] == '_') {
		k++
	}
	key := src[j:k]

	// `key":` is missing only the opening quote
	if k+1 < len(src) && src[k] == '"' && src[k+1] == ':' {
		*out = append(*out, '"')
		*out = append(*out, key...)
		*out = append(*out, '"')
		return k + 1
	}

	// `key:` is missing both quotes
	if m := skipSpace(src, k); m < len(src) && src[m] == ':' {
		*out = append(*out, '"')
		*out = append(*out, key...)
		*out = append(*out, '"')
		return k
	}

	// Not a key (true, false, null, ...)
	return j
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	return i
}
