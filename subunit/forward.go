package subunit

import (
	"io"

	"github.com/cockroachdb/errors"
)

// forwardLine writes line verbatim to the forward stream, independent of
// whether the protocol consumed or passed through the same line. A nil
// stream is a no-op so forwarding stays opt-in.
func forwardLine(w io.Writer, line string) error {
	if w == nil {
		return nil
	}
	if _, err := io.WriteString(w, line); err != nil {
		return errors.Wrap(err, "subunit: writing forward stream")
	}
	return nil
}
