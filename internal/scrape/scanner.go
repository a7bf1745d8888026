package scrape

import (
	"fmt"

	"github.com/famomatic/ytchill/internal/types"
)

// ScanBalanced finds the end of the JSON object opening at data[start],
// which must be '{'. It tracks nesting depth and skips braces inside
// string literals, honoring backslash escapes. The returned index is one
// past the matching closing brace, so data[start:end] is the full object.
//
// Pattern matching cannot delimit arbitrarily nested JSON; this is the
// small hand-written lexer that can.
func ScanBalanced(data []byte, start int) (int, error) {
	if start < 0 || start >= len(data) || data[start] != '{' {
		return 0, fmt.Errorf("%w: no opening brace at offset %d", types.ErrUnterminatedStructure, start)
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(data); i++ {
		b := data[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: depth %d at end of input", types.ErrUnterminatedStructure, depth)
}
