package fetcher

import "bytes"

var nonFiniteTokens = [][]byte{
	[]byte("-Infinity"),
	[]byte("Infinity"),
	[]byte("NaN"),
}

// sanitize rewrites bare NaN/Infinity tokens, which JMX servlets emit for
// undefined gauges, to null so the body is valid JSON. String contents are
// left untouched.
func sanitize(body []byte) []byte {
	if !bytes.Contains(body, []byte("NaN")) && !bytes.Contains(body, []byte("Infinity")) {
		return body
	}

	out := make([]byte, 0, len(body))
	inString := false
	escaped := false
	for i := 0; i < len(body); i++ {
		b := body[i]
		if inString {
			out = append(out, b)
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
		if b == '"' {
			inString = true
			out = append(out, b)
			continue
		}

		replaced := false
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(body[i:], tok) {
				out = append(out, "null"...)
				i += len(tok) - 1
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, b)
		}
	}
	return out
}
