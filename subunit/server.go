package subunit

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Server is the protocol state machine: it consumes lines (either pushed
// via LineReceived or pulled via ReadFrom) and dispatches start/end/
// outcome/progress/tags/time events to a Sink. It holds no locks and
// expects to be driven by a single caller: single-threaded, cooperative,
// synchronous byte-in/event-out.
type Server struct {
	sink        Sink
	passthrough io.Writer
	forward     io.Writer

	state protocolState
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// WithPassthrough sets the stream that receives unrecognized bytes
// verbatim, including their newlines. The default is os.Stdout; pass
// Discarding to silence pass-through entirely.
func WithPassthrough(w io.Writer) ServerOption {
	return func(s *Server) { s.passthrough = w }
}

// WithForward sets a stream that receives every raw input line,
// including ones consumed by the protocol, independent of pass-through.
// The default is no forwarding.
func WithForward(w io.Writer) ServerOption {
	return func(s *Server) { s.forward = w }
}

// NewServer constructs a Server delivering events to sink.
func NewServer(sink Sink, opts ...ServerOption) *Server {
	s := &Server{
		sink:        sink,
		passthrough: os.Stdout,
		state:       outsideState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LineReceived feeds one line, including its trailing "\n", into the state
// machine. It is the push-mode entry point used directly by tests and by
// in-process forwarders; ReadFrom calls it once per line read from a
// stream. The only error it can return is a write failure on the
// configured forward or passthrough stream, wrapped with
// cockroachdb/errors; a write failure does not stop the state machine
// from advancing, since the line has already been consumed.
func (s *Server) LineReceived(line string) error {
	var werr error
	if s.forward != nil {
		// Forwarding fidelity is independent of protocol interpretation:
		// a forward failure is reported to the caller but does not
		// suppress state-machine progress (the sidechannel's "callers
		// must not interleave writes" ownership model applies to the
		// writer, not to decoding).
		werr = forwardLine(s.forward, line)
	}

	var serr error
	switch st := s.state.(type) {
	case outsideState:
		serr = s.stepOutside(line)
	case inTestState:
		serr = s.stepInTest(st, line)
	case *readingDetailState:
		serr = s.stepReadingDetail(st, line)
	default:
		panic(errors.AssertionFailedf("subunit: unknown protocol state %T", s.state))
	}

	if werr != nil {
		return werr
	}
	return serr
}

func (s *Server) passThroughLine(line string) error {
	if s.passthrough == nil {
		return nil
	}
	if _, err := io.WriteString(s.passthrough, line); err != nil {
		return errors.Wrap(err, "subunit: writing passthrough stream")
	}
	return nil
}

func (s *Server) stepOutside(line string) error {
	tok := classify(line)

	switch tok.kind {
	case tokStartTest:
		id := TestID(tok.operand)
		s.sink.StartTest(id)
		s.state = inTestState{current: id, openingLine: tok.raw}
		return nil
	case tokProgress:
		return s.deliverProgress(tok)
	case tokTags:
		return s.deliverTags(tok)
	case tokTime:
		return s.deliverTime(tok)
	default:
		return s.passThroughLine(line)
	}
}

func (s *Server) stepInTest(st inTestState, line string) error {
	tok := classify(line)

	switch tok.kind {
	case tokProgress:
		return s.deliverProgress(tok)
	case tokTags:
		return s.deliverTags(tok)
	case tokTime:
		return s.deliverTime(tok)
	}

	if tok.kind == tokStartTest {
		// A second StartTest while already in a test abandons the prior
		// test silently: no outcome, no end, and the prior opening line
		// is flushed to pass-through rather than the new one.
		err := s.passThroughLine(st.openingLine)
		id := TestID(tok.operand)
		s.sink.StartTest(id)
		s.state = inTestState{current: id, openingLine: tok.raw}
		return err
	}

	outcome, ok := outcomeForToken(tok.kind)
	if !ok {
		return s.passThroughLine(line)
	}
	if TestID(tok.operand) != st.current {
		return s.passThroughLine(line)
	}

	if tok.opensBlock {
		s.state = &readingDetailState{outcome: outcome, current: st.current}
		return nil
	}

	s.dispatchOutcome(st.current, outcome, "")
	s.sink.StopTest(st.current)
	s.state = outsideState{}
	return nil
}

func (s *Server) stepReadingDetail(st *readingDetailState, line string) error {
	if terminated := appendDetailLine(&st.buf, line); terminated {
		s.dispatchOutcome(st.current, st.outcome, st.buf.String())
		s.sink.StopTest(st.current)
		s.state = outsideState{}
	}
	return nil
}

func outcomeForToken(kind tokenKind) (Outcome, bool) {
	switch kind {
	case tokSuccess:
		return Success, true
	case tokFailure:
		return Failure, true
	case tokError:
		return Error, true
	case tokSkip:
		return Skip, true
	case tokExpectedFailure:
		return ExpectedFailure, true
	default:
		return 0, false
	}
}

// dispatchOutcome delivers a terminal outcome to the sink, degrading to
// AddSuccess when an optional capability is missing.
func (s *Server) dispatchOutcome(id TestID, outcome Outcome, buf string) {
	switch outcome {
	case Success:
		s.sink.AddSuccess(id)
	case Failure:
		s.sink.AddFailure(id, NewRemoteError(buf))
	case Error:
		s.sink.AddError(id, NewRemoteError(buf))
	case Skip:
		reason := buf
		if reason == "" {
			reason = "No reason given"
		}
		if sk, ok := s.sink.(SkipCapable); ok {
			sk.AddSkip(id, reason)
		} else {
			s.sink.AddSuccess(id)
		}
	case ExpectedFailure:
		if xf, ok := s.sink.(ExpectedFailureCapable); ok {
			xf.AddExpectedFailure(id, NewRemoteError(buf))
		} else {
			s.sink.AddSuccess(id)
		}
	}
}

// deliverProgress parses and, if the sink supports it, delivers a
// progress: directive. An unparseable operand causes the directive's raw
// line to be passed through instead of rejected as an error.
func (s *Server) deliverProgress(tok token) error {
	delta, whence, err := parseProgress(tok.operand)
	if err != nil {
		return s.passThroughLine(tok.raw)
	}
	if pc, ok := s.sink.(ProgressCapable); ok {
		pc.Progress(delta, whence)
	}
	return nil
}

// deliverTags parses and, if the sink supports it, delivers a tags:
// directive.
func (s *Server) deliverTags(tok token) error {
	delta := parseTags(tok.operand)
	if tc, ok := s.sink.(TagsCapable); ok {
		tc.Tags(delta)
	}
	return nil
}

// deliverTime parses and, if the sink supports it, delivers a time:
// directive. An unparseable operand causes the directive's raw line to be
// passed through instead of rejected as an error.
func (s *Server) deliverTime(tok token) error {
	ts, err := parseTimestamp(tok.operand)
	if err != nil {
		return s.passThroughLine(tok.raw)
	}
	if t, ok := s.sink.(TimeCapable); ok {
		t.Time(ts)
	}
	return nil
}

// LostConnection handles an externally invoked connection-loss signal. It
// synthesizes an error+end pair for whatever test was in progress; it is
// a no-op Outside.
func (s *Server) LostConnection() {
	switch st := s.state.(type) {
	case outsideState:
		// no-op
	case inTestState:
		msg := "lost connection during test '" + string(st.current) + "'"
		s.sink.AddError(st.current, NewRemoteError(msg))
		s.sink.StopTest(st.current)
		s.state = outsideState{}
	case *readingDetailState:
		msg := "lost connection during " + st.outcome.String() + " report of test '" + string(st.current) + "'"
		s.sink.AddError(st.current, NewRemoteError(msg))
		s.sink.StopTest(st.current)
		s.state = outsideState{}
	}
}
