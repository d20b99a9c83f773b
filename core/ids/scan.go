package ids

import "strings"

// Escaped regions are passed through by the serializer untouched, so ids in
// them are not ours to rewrite.
const (
	EscapePrefix  = "<!--quire-escape-prefix-->"
	EscapePostfix = "<!--quire-escape-postfix-->"
)

// Attributes whose values may hold placeholder tokens.
var idAttributes = map[string]bool{
	"id":       true,
	"linkend":  true,
	"linkends": true,
	"arearefs": true,
}

// scanIDs calls fn with the [start, end) byte range of every id-bearing
// attribute value in src, in order.
//
// This is a tolerant subset of XML: it only tracks tags, comments,
// processing instructions and escaped regions, and gives up on a tag at the
// first thing it does not understand instead of failing. Hand-written
// escapes in documents are often not well formed.
func scanIDs(src string, fn func(start, end int)) {
	n := len(src)
	i := 0
	for {
		i = readPast(src, i, "<")
		if i >= n {
			return
		}

		if strings.HasPrefix(src[i:], EscapePrefix[1:]) {
			i = readPast(src, i+len(EscapePrefix)-1, EscapePostfix)
			continue
		}

		switch c := src[i]; {
		case c == '?':
			i = readPast(src, i+1, "?>")
		case c == '!':
			if strings.HasPrefix(src[i:], "!--") {
				i = readPast(src, i+3, "-->")
			} else {
				i = readPast(src, i, ">")
			}
		case isNameStart(c):
			i = scanTag(src, i, fn)
		default:
			i = readPast(src, i, ">")
		}
	}
}

// scanTag reads a start tag's attributes beginning at its name, reporting id
// values. It returns where scanning should resume.
func scanTag(src string, i int, fn func(start, end int)) int {
	n := len(src)
	i = readToOneOf(src, i, " \t\n\r>")

	for {
		i = readSomeOf(src, i, " \t\n\r")
		nameStart := i
		i = readToOneOf(src, i, "= \t\n\r>")
		if i >= n || src[i] == '>' {
			return i
		}
		name := src[nameStart:i]
		i++

		i = readSomeOf(src, i, "= \t\n\r")
		if i >= n || (src[i] != '"' && src[i] != '\'') {
			return i
		}
		delim := src[i]
		i++

		valueStart := i
		j := strings.IndexByte(src[i:], delim)
		if j < 0 {
			return n
		}
		i += j
		if idAttributes[name] {
			fn(valueStart, i)
		}
		i++
	}
}

func isNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == ':'
}

// readPast returns the offset just past the next occurrence of text at or
// after i, or len(src).
func readPast(src string, i int, text string) int {
	if i >= len(src) {
		return len(src)
	}
	j := strings.Index(src[i:], text)
	if j < 0 {
		return len(src)
	}
	return i + j + len(text)
}

func readSomeOf(src string, i int, chars string) int {
	for i < len(src) && strings.IndexByte(chars, src[i]) >= 0 {
		i++
	}
	return i
}

func readToOneOf(src string, i int, chars string) int {
	for i < len(src) && strings.IndexByte(chars, src[i]) < 0 {
		i++
	}
	return i
}
