package ids

// normalize collapses runs of '_' into one, drops trailing '_' and keeps at
// most size bytes after prefix. The first prefix bytes are copied unchanged.
func normalize(id string, prefix, size int) string {
	if prefix > len(id) {
		prefix = len(id)
	}
	b := []byte(id)
	src, dst := prefix, prefix
	size += prefix

	for src < len(b) && dst < size {
		if b[src] == '_' {
			for src < len(b) && b[src] == '_' {
				src++
			}
			if src < len(b) {
				b[dst] = '_'
				dst++
			}
		} else {
			b[dst] = b[src]
			dst++
			src++
		}
	}
	return string(b[:dst])
}

// normalizeQualified collapses '_' runs across all of id but caps only the
// segment after the last dot at size.
func normalizeQualified(id string, size int) string {
	start := lastSegment(id)
	head := normalize(id[:start], 0, start)
	return normalize(head+id[start:], len(head), size)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// lastSegment returns the offset just past the last '.' in id.
func lastSegment(id string) int {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '.' {
			return i + 1
		}
	}
	return 0
}
