package subunit

// RemoteTest is a minimal placeholder object pairing a TestID with its
// last-seen outcome, used by callers (such as cmd/subunitfilter) that
// want to accumulate a final tally without standing up a full external
// test-result framework. A richer "remoted test case" object, proxying
// a test run over a wire connection, is out of scope here; this is the
// minimal slice of it the CLI harness actually needs.
type RemoteTest struct {
	ID      TestID
	Outcome Outcome
	Err     RemoteError
}
