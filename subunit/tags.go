package subunit

import "strings"

// parseTags decodes the whitespace-separated operand of a tags:
// directive. A token starting with "-" contributes to removed;
// everything else contributes to added. Empty tokens from runs of
// whitespace are ignored.
func parseTags(operand string) TagDelta {
	var delta TagDelta
	for _, tok := range strings.Fields(operand) {
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "-") {
			tail := tok[1:]
			if tail != "" {
				delta.Removed = append(delta.Removed, tail)
			}
			continue
		}
		delta.Added = append(delta.Added, tok)
	}
	return delta
}
