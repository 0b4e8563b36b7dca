// Package subunitclient provides the client-side encoder: the symmetry
// contract mirroring subunit.Sink, emitting the same grammar server-side
// decoders consume. It is secondary to the server state machine —
// straightforward printf-style output over an io.Writer.
package subunitclient

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mhuin/subunit"
)

// Encoder serializes subunit events to w using the subunit wire grammar.
// It implements subunit.Sink plus all of the optional capability
// interfaces, so a subunit.Server writing into an Encoder exercises
// every directive.
type Encoder struct {
	w io.Writer
}

// NewEncoder constructs an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(format string, args ...interface{}) {
	// Best-effort: a write failure to the protocol stream has no
	// recovery path available to a Sink method (none of them return an
	// error), matching the teacher's fmt.Fprintln/fmt.Fprintf call
	// sites, which likewise don't propagate output-stream errors.
	_, _ = fmt.Fprintf(e.w, format, args...)
}

// StartTest emits "test: <id>\n".
func (e *Encoder) StartTest(id subunit.TestID) {
	e.write("test: %s\n", id)
}

// StopTest emits nothing; subunit has no wire representation of "end" on
// its own — it is implied by the outcome directive that precedes it.
func (e *Encoder) StopTest(subunit.TestID) {}

// AddSuccess emits "successful: <id>\n".
func (e *Encoder) AddSuccess(id subunit.TestID) {
	e.write("successful: %s\n", id)
}

// AddFailure emits the block form "failure: <id> [\n...\n]\n".
func (e *Encoder) AddFailure(id subunit.TestID, err subunit.RemoteError) {
	e.writeDetail("failure", id, err.Msg)
}

// AddError emits the block form "error: <id> [\n...\n]\n".
func (e *Encoder) AddError(id subunit.TestID, err subunit.RemoteError) {
	e.writeDetail("error", id, err.Msg)
}

// AddSkip emits the block form "skip: <id> [\n<reason>\n]\n".
func (e *Encoder) AddSkip(id subunit.TestID, reason string) {
	e.writeDetail("skip", id, reason)
}

// AddExpectedFailure emits the block form "xfail: <id> [\n...\n]\n".
func (e *Encoder) AddExpectedFailure(id subunit.TestID, err subunit.RemoteError) {
	e.writeDetail("xfail", id, err.Msg)
}

// writeDetail emits a detail-block directive, escaping (with one leading
// space) any line in msg that would otherwise collide with the "]"
// terminator or lose its own leading space to the server's escape rule.
func (e *Encoder) writeDetail(keyword string, id subunit.TestID, msg string) {
	e.write("%s: %s [\n", keyword, id)
	e.writeEscaped(msg)
	e.write("]\n")
}

func (e *Encoder) writeEscaped(msg string) {
	if msg == "" {
		return
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	for _, line := range splitKeepingNewlines(msg) {
		if line == "]\n" || strings.HasPrefix(line, " ") {
			e.write(" %s", line)
			continue
		}
		e.write("%s", line)
	}
}

// splitKeepingNewlines splits s into lines, each retaining its trailing
// "\n" except possibly the last.
func splitKeepingNewlines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// Progress emits "progress: <n>\n" / "progress: +<n>\n" / "progress: -<n>\n"
// for Set/Cur whence, or "progress: push\n" / "progress: pop\n".
func (e *Encoder) Progress(delta int, whence subunit.ProgressWhence) {
	switch whence {
	case subunit.ProgressPush:
		e.write("progress: push\n")
	case subunit.ProgressPop:
		e.write("progress: pop\n")
	case subunit.ProgressCur:
		if delta >= 0 {
			e.write("progress: +%d\n", delta)
		} else {
			e.write("progress: -%d\n", -delta)
		}
	default: // ProgressSet
		e.write("progress: %d\n", delta)
	}
}

// Tags emits "tags: <added...> <-removed...>\n".
func (e *Encoder) Tags(delta subunit.TagDelta) {
	var b []byte
	for _, t := range delta.Added {
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, t...)
	}
	for _, t := range delta.Removed {
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, '-')
		b = append(b, t...)
	}
	e.write("tags: %s\n", string(b))
}

// Time emits "time: YYYY-MM-DD HH:MM:SS.ffffffZ\n".
func (e *Encoder) Time(t time.Time) {
	e.write("time: %s\n", subunit.FormatTimestamp(t))
}
