package files

import (
	"bytes"
	"fmt"
	"strings"
)

// Byte order marks, longest first where prefixes overlap.
var boms = []struct {
	mark     []byte
	encoding string
}{
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, "UTF-32"},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, "UTF-32"},
	{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8"},
	{[]byte{0xFE, 0xFF}, "UTF-16"},
	{[]byte{0xFF, 0xFE}, "UTF-16"},
}

// DetectEncoding reports the encoding named by data's byte order mark and
// the mark's length. Without a mark it returns "" and 0.
func DetectEncoding(data []byte) (encoding string, bomLength int) {
	for _, b := range boms {
		if bytes.HasPrefix(data, b.mark) {
			return b.encoding, len(b.mark)
		}
	}
	return "", 0
}

// Normalize strips a UTF-8 byte order mark and converts Windows and old Mac
// line endings to "\n". Input marked as UTF-16 or UTF-32 is rejected.
func Normalize(data []byte) (string, error) {
	encoding, n := DetectEncoding(data)
	if encoding != "" && encoding != "UTF-8" {
		return "", fmt.Errorf("%s is not supported. Please use UTF-8.", encoding)
	}
	data = data[n:]

	var b strings.Builder
	b.Grow(len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\r' {
			b.WriteByte(data[i])
			continue
		}
		b.WriteByte('\n')
		if i+1 < len(data) && data[i+1] == '\n' {
			i++
		}
	}
	return b.String(), nil
}
