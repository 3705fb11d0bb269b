// Package extract locates the JSON payload inside free-form oracle replies.
package extract

import "github.com/tidwall/gjson"

// Shape is the kind of JSON value a caller expects.
type Shape int

const (
	Object Shape = iota
	Array
)

func (s Shape) String() string {
	if s == Array {
		return "array"
	}
	return "object"
}

func (s Shape) delims() (byte, byte) {
	if s == Array {
		return '[', ']'
	}
	return '{', '}'
}

// Extract returns the first balanced span of the requested shape that is
// strictly valid JSON. A candidate that fails to parse is skipped whole, so
// fragments nested inside a broken payload are never returned. The boolean is
// false when no candidate parses.
func Extract(text string, shape Shape) (gjson.Result, bool) {
	open, _ := shape.delims()
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}
		end, ok := matchSpan(text, i)
		if !ok {
			continue
		}
		span := text[i : end+1]
		if gjson.Valid(span) {
			res := gjson.Parse(span)
			if (shape == Array && res.IsArray()) || (shape == Object && res.IsObject()) {
				return res, true
			}
		}
		i = end
	}
	return gjson.Result{}, false
}

// matchSpan returns the index of the bracket closing the one at start. It
// tracks both bracket kinds and ignores brackets inside double-quoted strings.
// A mismatched closer ends the attempt.
func matchSpan(text string, start int) (int, bool) {
	stack := make([]byte, 0, 16)
	inString := false
	for j := start; j < len(text); j++ {
		c := text[j]
		if inString {
			switch c {
			case '\\':
				j++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return j, true
			}
		}
	}
	return 0, false
}
