// Package subunit implements the server side of the subunit v1 test result
// streaming protocol: a line reader, a directive classifier, a detail-block
// reader, and the protocol state machine that dispatches parsed events to a
// Sink.
package subunit

import (
	"strings"
	"time"
)

// TestID names a single test case. Two TestIDs are equal iff their
// underlying strings are equal.
type TestID string

// RemoteError is a string-valued failure/error payload attached to an
// outcome. The zero value equals RemoteError{}.
type RemoteError struct {
	Msg string
}

// NewRemoteError wraps a message in a RemoteError.
func NewRemoteError(msg string) RemoteError {
	return RemoteError{Msg: msg}
}

// Error implements the error interface so a RemoteError composes with
// github.com/cockroachdb/errors where a caller wants to treat it as such.
func (e RemoteError) Error() string {
	return e.Msg
}

// Outcome is one of the five terminal results a test can report.
type Outcome int

const (
	// Success indicates the test passed.
	Success Outcome = iota
	// Failure indicates an assertion failure.
	Failure
	// Error indicates an unexpected error during the test.
	Error
	// Skip indicates the test was not run.
	Skip
	// ExpectedFailure indicates a known, tolerated failure.
	ExpectedFailure
)

// String returns the keyword associated with an outcome, used in
// connection-loss messages and logs.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Error:
		return "error"
	case Skip:
		return "skip"
	case ExpectedFailure:
		return "xfail"
	default:
		return "unknown"
	}
}

// ProgressWhence describes how a progress operand should be interpreted.
type ProgressWhence int

const (
	// ProgressSet is an absolute value.
	ProgressSet ProgressWhence = iota
	// ProgressCur is a relative delta.
	ProgressCur
	// ProgressPush saves the current progress and resets it.
	ProgressPush
	// ProgressPop restores a previously pushed progress.
	ProgressPop
)

// TagDelta is a stream-level tag change: tokens added and tokens removed.
type TagDelta struct {
	Added   []string
	Removed []string
}

// protocolState is the sum type Outside | InTest | ReadingDetail. It is
// modeled as an interface with unexported implementations rather than a
// sentinel field, per the state machine's design note: transitions are pure
// functions of (state, token).
type protocolState interface {
	isProtocolState()
}

type outsideState struct{}

func (outsideState) isProtocolState() {}

type inTestState struct {
	current     TestID
	openingLine string
}

func (inTestState) isProtocolState() {}

type readingDetailState struct {
	outcome Outcome
	current TestID
	buf     strings.Builder
}

func (*readingDetailState) isProtocolState() {}

// truncateToMicros drops any sub-microsecond precision, matching the wire
// format's fixed six fractional digits.
func truncateToMicros(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
