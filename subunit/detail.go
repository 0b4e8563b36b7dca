package subunit

import "strings"

// appendDetailLine applies the detail-block escape rule to one line of a
// block already known to be open: a line beginning with a single space
// has that space stripped before being appended, so a payload line that
// would otherwise read as the bare terminator can be escaped. line
// includes its trailing newline. It reports whether line was the bare
// "]" terminator; if so nothing is appended to buf.
func appendDetailLine(buf *strings.Builder, line string) (terminated bool) {
	if line == "]\n" || line == "]" {
		return true
	}
	if strings.HasPrefix(line, " ") {
		buf.WriteString(line[1:])
		return false
	}
	buf.WriteString(line)
	return false
}
