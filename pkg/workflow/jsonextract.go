package workflow

import (
	"strings"

	"github.com/pressline/writeflow-sdk/pkg/model"
	"github.com/tidwall/gjson"
)

// ExtractStringArray pulls the first bracketed JSON array out of
// free-form model text. Best-effort: on failure it returns an empty list
// and a ParseError so the caller can report it without blocking manual
// continuation.
func ExtractStringArray(text string) ([]string, error) {
	start := strings.Index(text, "[")
	if start < 0 {
		return nil, &model.ParseError{Detail: "no JSON array found in response"}
	}

	end := matchingBracket(text, start)
	if end < 0 {
		return nil, &model.ParseError{Detail: "unterminated JSON array in response"}
	}

	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return nil, &model.ParseError{Detail: "bracketed substring is not valid JSON"}
	}

	parsed := gjson.Parse(candidate)
	if !parsed.IsArray() {
		return nil, &model.ParseError{Detail: "bracketed substring is not a JSON array"}
	}

	var out []string
	for _, v := range parsed.Array() {
		out = append(out, v.String())
	}
	return out, nil
}

// matchingBracket returns the index of the ']' closing the '[' at start,
// ignoring brackets inside string literals, or -1 when unterminated.
func matchingBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
