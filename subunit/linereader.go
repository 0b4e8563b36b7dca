package subunit

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// Run drives the server by reading r to completion, splitting it into
// newline-terminated lines and feeding each to LineReceived. An
// unterminated trailing fragment at end-of-stream is discarded at the
// line level, but, since it signals a severed connection, triggers
// LostConnection before Run returns. The returned error is whatever
// LineReceived or the underlying reader produced, wrapped with
// cockroachdb/errors; it is never a protocol-level condition (those are
// always sink-delivered, never Go errors).
//
// Grounded on the teacher's bufio.Scanner-driven read loop in
// pkg/cmd/testfilter/main.go's filter().
func (s *Server) Run(r io.Reader) error {
	reader := bufio.NewReader(r)
	var sawPartialTail bool

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 && strings.HasSuffix(line, "\n") {
			if lerr := s.LineReceived(line); lerr != nil {
				return lerr
			}
		} else if len(line) > 0 {
			// Partial, unterminated tail: dropped at the line level.
			sawPartialTail = true
		}

		if err == io.EOF {
			if sawPartialTail {
				s.LostConnection()
			}
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "subunit: reading input stream")
		}
	}
}

// ReadFrom is a synonym for Run, kept for callers that prefer the
// io.ReaderFrom-shaped name.
func (s *Server) ReadFrom(r io.Reader) error {
	return s.Run(r)
}
