package subunit

import "io"

// Discarding is a passthrough/forward stream that drops everything
// written to it. Use it to silence unrecognized bytes instead of
// forwarding them to a real stream.
var Discarding io.Writer = discardWriter{}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) {
	return len(p), nil
}
