// Package subunittest provides test doubles for exercising subunit.Server
// without a real aggregator, grounded on the recording-mock idiom used
// throughout the retrieval corpus for capturing calls made to a
// collaborator interface.
package subunittest

import (
	"time"

	"github.com/mhuin/subunit"
)

// Call records one invocation made to a RecordingSink, tagged by method
// name so assertions can filter/inspect the call sequence.
type Call struct {
	Method string
	ID     subunit.TestID
	Err    subunit.RemoteError
	Reason string
	Delta  int
	Whence subunit.ProgressWhence
	Tags   subunit.TagDelta
	Time   time.Time
}

// RecordingSink is an in-memory subunit.Sink (plus every optional
// capability) that appends each call it receives, in order, to Calls.
type RecordingSink struct {
	Calls []Call
}

// NewRecordingSink constructs an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (r *RecordingSink) StartTest(id subunit.TestID) {
	r.Calls = append(r.Calls, Call{Method: "StartTest", ID: id})
}

func (r *RecordingSink) StopTest(id subunit.TestID) {
	r.Calls = append(r.Calls, Call{Method: "StopTest", ID: id})
}

func (r *RecordingSink) AddSuccess(id subunit.TestID) {
	r.Calls = append(r.Calls, Call{Method: "AddSuccess", ID: id})
}

func (r *RecordingSink) AddFailure(id subunit.TestID, err subunit.RemoteError) {
	r.Calls = append(r.Calls, Call{Method: "AddFailure", ID: id, Err: err})
}

func (r *RecordingSink) AddError(id subunit.TestID, err subunit.RemoteError) {
	r.Calls = append(r.Calls, Call{Method: "AddError", ID: id, Err: err})
}

func (r *RecordingSink) AddSkip(id subunit.TestID, reason string) {
	r.Calls = append(r.Calls, Call{Method: "AddSkip", ID: id, Reason: reason})
}

func (r *RecordingSink) AddExpectedFailure(id subunit.TestID, err subunit.RemoteError) {
	r.Calls = append(r.Calls, Call{Method: "AddExpectedFailure", ID: id, Err: err})
}

func (r *RecordingSink) Progress(delta int, whence subunit.ProgressWhence) {
	r.Calls = append(r.Calls, Call{Method: "Progress", Delta: delta, Whence: whence})
}

func (r *RecordingSink) Tags(delta subunit.TagDelta) {
	r.Calls = append(r.Calls, Call{Method: "Tags", Tags: delta})
}

func (r *RecordingSink) Time(t time.Time) {
	r.Calls = append(r.Calls, Call{Method: "Time", Time: t})
}

// Names returns just the Method field of each recorded call, in order,
// convenient for asserting call-sequence shape without comparing full
// payloads.
func (r *RecordingSink) Names() []string {
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Method
	}
	return names
}
