package subunit_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhuin/subunit"
	"github.com/mhuin/subunit/subunittest"
)

func feed(t *testing.T, srv *subunit.Server, input string) {
	t.Helper()
	for _, line := range splitKeepingNewlines(input) {
		srv.LineReceived(line)
	}
}

// splitKeepingNewlines is the test-local twin of the one used by the
// encoder: splits s into lines, each retaining its own trailing "\n".
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

func diffStrings(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	require.NoError(t, err)
	t.Fatalf("byte-fidelity mismatch:\n%s", diff)
}

// A single test reporting success.
func TestScenario_SimpleSuccess(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "test old mcdonald\nsuccess old mcdonald\n")

	require.Equal(t, []string{"StartTest", "AddSuccess", "StopTest"}, sink.Names())
	assert.Equal(t, subunit.TestID("old mcdonald"), sink.Calls[0].ID)
}

// A run of three tests, one of each success/failure/error outcome.
func TestScenario_ThreeTests(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	input := "test old mcdonald\n" +
		"success old mcdonald\n" +
		"test bing crosby\n" +
		"failure bing crosby [\n" +
		"foo.c:53:ERROR invalid state\n" +
		"]\n" +
		"test an error\n" +
		"error an error\n"
	feed(t, srv, input)

	require.Equal(t, []string{
		"StartTest", "AddSuccess", "StopTest",
		"StartTest", "AddFailure", "StopTest",
		"StartTest", "AddError", "StopTest",
	}, sink.Names())

	failure := findCall(t, sink, "AddFailure")
	assert.Equal(t, "foo.c:53:ERROR invalid state\n", failure.Err.Msg)

	errCall := findCall(t, sink, "AddError")
	assert.Equal(t, "", errCall.Err.Msg)
}

func findCall(t *testing.T, sink *subunittest.RecordingSink, method string) subunittest.Call {
	t.Helper()
	for _, c := range sink.Calls {
		if c.Method == method {
			return c
		}
	}
	t.Fatalf("no %s call recorded", method)
	return subunittest.Call{}
}

// An outcome with no preceding test is pass-through, and pass-through
// reproduces the input byte-for-byte.
func TestScenario_PassThroughWithoutStart(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	var pt bytes.Buffer
	srv := subunit.NewServer(sink, subunit.WithPassthrough(&pt))

	input := "success old mcdonald\n"
	feed(t, srv, input)

	assert.Empty(t, sink.Calls)
	diffStrings(t, input, pt.String())
}

// The escape rule recovers a literal "]" line embedded in a detail
// block, and nothing leaks to pass-through.
func TestScenario_DetailEscape(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	var pt bytes.Buffer
	srv := subunit.NewServer(sink, subunit.WithPassthrough(&pt))

	input := "test old mcdonald\n" +
		"failure: old mcdonald [\n" +
		"test old mcdonald\n" +
		"failure a\n" +
		" ]\n" +
		"]\n"
	feed(t, srv, input)

	require.Equal(t, []string{"StartTest", "AddFailure", "StopTest"}, sink.Names())
	failure := findCall(t, sink, "AddFailure")
	assert.Equal(t, "test old mcdonald\nfailure a\n]\n", failure.Err.Msg)
	assert.Empty(t, pt.String())
}

// Connection loss mid-test synthesizes an error+end pair.
func TestScenario_LostConnectionInTest(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "test old mcdonald\n")
	srv.LostConnection()

	require.Equal(t, []string{"StartTest", "AddError", "StopTest"}, sink.Names())
	errCall := findCall(t, sink, "AddError")
	assert.Equal(t, "lost connection during test 'old mcdonald'", errCall.Err.Msg)
}

func TestLostConnection_DuringDetail(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "test t1\nfailure: t1 [\nsome partial output\n")
	srv.LostConnection()

	errCall := findCall(t, sink, "AddError")
	assert.Equal(t, "lost connection during failure report of test 't1'", errCall.Err.Msg)
}

func TestLostConnection_Outside_NoOp(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))
	srv.LostConnection()
	assert.Empty(t, sink.Calls)
}

// Tags additions vs removals.
func TestScenario_Tags(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "tags: foo bar:baz quux\n")
	feed(t, srv, "tags: -bar quux\n")

	require.Len(t, sink.Calls, 2)
	assert.Equal(t, subunit.TagDelta{Added: []string{"foo", "bar:baz", "quux"}}, sink.Calls[0].Tags)
	assert.Equal(t, subunit.TagDelta{Added: []string{"quux"}, Removed: []string{"bar"}}, sink.Calls[1].Tags)
}

// Progress whence decoding.
func TestScenario_Progress(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "progress: 23\nprogress: push\nprogress: -2\nprogress: pop\nprogress: +4\n")

	require.Len(t, sink.Calls, 5)
	assert.Equal(t, subunittest.Call{Method: "Progress", Delta: 23, Whence: subunit.ProgressSet}, sink.Calls[0])
	assert.Equal(t, subunit.ProgressPush, sink.Calls[1].Whence)
	assert.Equal(t, subunittest.Call{Method: "Progress", Delta: -2, Whence: subunit.ProgressCur}, sink.Calls[2])
	assert.Equal(t, subunit.ProgressPop, sink.Calls[3].Whence)
	assert.Equal(t, subunittest.Call{Method: "Progress", Delta: 4, Whence: subunit.ProgressCur}, sink.Calls[4])
}

// Time parsing.
func TestScenario_Time(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "time: 2001-12-12 12:59:59Z\n")

	require.Len(t, sink.Calls, 1)
	want := time.Date(2001, 12, 12, 12, 59, 59, 0, time.UTC)
	assert.True(t, want.Equal(sink.Calls[0].Time))
}

// Skip with no detail block defaults the reason to a stock message.
func TestSkip_NoDetailBlock(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "test t1\nskip t1\n")

	skip := findCall(t, sink, "AddSkip")
	assert.Equal(t, "No reason given", skip.Reason)
}

// A sink lacking SkipCapable degrades skip to success.
type minimalSink struct {
	calls []string
}

func (m *minimalSink) StartTest(subunit.TestID)                      { m.calls = append(m.calls, "StartTest") }
func (m *minimalSink) StopTest(subunit.TestID)                       { m.calls = append(m.calls, "StopTest") }
func (m *minimalSink) AddSuccess(subunit.TestID)                     { m.calls = append(m.calls, "AddSuccess") }
func (m *minimalSink) AddFailure(subunit.TestID, subunit.RemoteError) { m.calls = append(m.calls, "AddFailure") }
func (m *minimalSink) AddError(subunit.TestID, subunit.RemoteError)   { m.calls = append(m.calls, "AddError") }

func TestDegrade_SkipAndExpectedFailure(t *testing.T) {
	sink := &minimalSink{}
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	feed(t, srv, "test t1\nskip t1\n")
	feed(t, srv, "test t2\nxfail t2\n")

	assert.Equal(t, []string{
		"StartTest", "AddSuccess", "StopTest",
		"StartTest", "AddSuccess", "StopTest",
	}, sink.calls)
}

// Progress/tags/time directives are silently dropped, not pass-through,
// when the sink lacks the capability.
func TestDrop_UnsupportedDirectives(t *testing.T) {
	sink := &minimalSink{}
	var pt bytes.Buffer
	srv := subunit.NewServer(sink, subunit.WithPassthrough(&pt))

	feed(t, srv, "progress: 1\ntags: foo\ntime: 2001-12-12 12:59:59Z\n")

	assert.Empty(t, sink.calls)
	assert.Empty(t, pt.String())
}

// Second StartTest while already InTest abandons the first silently and
// echoes its opening line to pass-through.
func TestAbandon_SecondStartTest(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	var pt bytes.Buffer
	srv := subunit.NewServer(sink, subunit.WithPassthrough(&pt))

	feed(t, srv, "test first\ntest second\nsuccess second\n")

	require.Equal(t, []string{"StartTest", "StartTest", "AddSuccess", "StopTest"}, sink.Names())
	assert.Equal(t, subunit.TestID("first"), sink.Calls[0].ID)
	assert.Equal(t, subunit.TestID("second"), sink.Calls[1].ID)
	assert.Equal(t, "test first\n", pt.String())
}

// An outcome directive naming a test other than current is pass-through.
func TestOutcomeNameMismatch_IsPassThrough(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	var pt bytes.Buffer
	srv := subunit.NewServer(sink, subunit.WithPassthrough(&pt))

	feed(t, srv, "test t1\nsuccess t2\nsuccess t1\n")

	require.Equal(t, []string{"StartTest", "AddSuccess", "StopTest"}, sink.Names())
	assert.Equal(t, "success t2\n", pt.String())
}

// Forwarding fidelity: the forward stream receives every raw input line
// regardless of protocol interpretation, independent of pass-through.
func TestForwarding_Fidelity(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	var pt, fwd bytes.Buffer
	srv := subunit.NewServer(sink, subunit.WithPassthrough(&pt), subunit.WithForward(&fwd))

	input := "test t1\nsuccess t1\nunrelated line\n"
	feed(t, srv, input)

	diffStrings(t, input, fwd.String())
	assert.Equal(t, "unrelated line\n", pt.String())
}

func TestReadFrom_UnterminatedTailTriggersLostConnection(t *testing.T) {
	sink := subunittest.NewRecordingSink()
	srv := subunit.NewServer(sink, subunit.WithPassthrough(subunit.Discarding))

	r := strings.NewReader("test t1\nno trailing newline")
	require.NoError(t, srv.ReadFrom(r))

	require.Equal(t, []string{"StartTest", "AddError", "StopTest"}, sink.Names())
}
