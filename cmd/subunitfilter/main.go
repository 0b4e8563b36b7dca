// subunitfilter is a thin CLI harness over the subunit library: it can
// either decode a subunit stream on stdin and print a tally summary
// (-direction=server), or run a child process and encode its subunit
// events onto stdout while forwarding the child's own output
// (-direction=client). It is secondary glue — the protocol logic lives
// entirely in the subunit and subunitclient packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/mhuin/subunit"
	"github.com/mhuin/subunit/subunitclient"
)

type direction byte

const (
	directionServer direction = iota
	directionClient
)

func (d *direction) Set(s string) error {
	switch s {
	case "server":
		*d = directionServer
	case "client":
		*d = directionClient
	default:
		return errors.Newf("unsupported direction %q (want server or client)", s)
	}
	return nil
}

func (d *direction) String() string {
	switch *d {
	case directionServer:
		return "server"
	case directionClient:
		return "client"
	default:
		return "unknown"
	}
}

var dirVar = directionServer

func init() {
	flag.Var(&dirVar, "direction", "server: decode a subunit stream on stdin; client: run a command and encode its result")
}

func main() {
	flag.Parse()

	var err error
	switch dirVar {
	case directionServer:
		err = runServer(os.Stdin, os.Stdout, os.Stderr)
	case directionClient:
		err = runClient(flag.Args(), os.Stdout)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// tally accumulates per-outcome RemoteTests for the server direction's
// summary, grounded on the teacher's per-test-key buffering map combined
// with cloudposse-atmos's checkmark/x-mark summary idiom. The server
// direction drives a single Server.ReadFrom call from one goroutine, so
// tally needs no lock of its own.
type tally struct {
	diag    io.Writer
	passed  int
	skipped int
	failing []subunit.RemoteTest // failures and errors, for the end-of-run report
}

func (t *tally) StartTest(subunit.TestID) {}
func (t *tally) StopTest(subunit.TestID)  {}

func (t *tally) AddSuccess(id subunit.TestID) {
	t.passed++
	fmt.Fprintf(t.diag, " ✔ %s\n", id)
}

func (t *tally) AddFailure(id subunit.TestID, err subunit.RemoteError) {
	t.failing = append(t.failing, subunit.RemoteTest{ID: id, Outcome: subunit.Failure, Err: err})
	fmt.Fprintf(t.diag, " ✘ %s\n", id)
	if err.Msg != "" {
		fmt.Fprint(t.diag, indent(err.Msg))
	}
}

func (t *tally) AddError(id subunit.TestID, err subunit.RemoteError) {
	t.failing = append(t.failing, subunit.RemoteTest{ID: id, Outcome: subunit.Error, Err: err})
	fmt.Fprintf(t.diag, " ✘ %s (error)\n", id)
	if err.Msg != "" {
		fmt.Fprint(t.diag, indent(err.Msg))
	}
}

func (t *tally) AddSkip(id subunit.TestID, reason string) {
	t.skipped++
	fmt.Fprintf(t.diag, " ⏭ %s (%s)\n", id, reason)
}

func indent(s string) string {
	out := ""
	for _, line := range splitLines(s) {
		out += "    " + line + "\n"
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func runServer(in io.Reader, out, diag io.Writer) error {
	t := &tally{diag: diag}
	srv := subunit.NewServer(t, subunit.WithPassthrough(out))
	if err := srv.ReadFrom(in); err != nil {
		return errors.Wrap(err, "subunitfilter: server direction")
	}

	logger := charmlog.New(diag)
	logger.Info("summary", "passed", t.passed, "failing", len(t.failing), "skipped", t.skipped)
	for _, rt := range t.failing {
		logger.Warn("not ok", "test", rt.ID, "outcome", rt.Outcome, "detail", rt.Err.Msg)
	}
	if len(t.failing) > 0 {
		os.Exit(1)
	}
	return nil
}

// syncWriter serializes writes from multiple goroutines onto one
// io.Writer, grounded on the teacher's StreamProcessor.mu guarding its
// shared buffers map against concurrent event processing.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// runClient is the one place two goroutines run concurrently: one copies
// the child's stdout to out as it arrives, while this goroutine waits on
// the child process via cmd.Wait. sw serializes the two, since the copy
// goroutine can still be mid-write when Wait returns and this goroutine
// starts writing the encoded start/stop summary.
func runClient(argv []string, out io.Writer) error {
	if len(argv) == 0 {
		return errors.New("subunitfilter: client direction requires a command after the flags")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "subunitfilter: opening child stdout")
	}

	sw := &syncWriter{w: out}
	enc := subunitclient.NewEncoder(sw)
	id := subunit.TestID(argv[0])
	enc.StartTest(id)

	if err := cmd.Start(); err != nil {
		enc.AddError(id, subunit.NewRemoteError(err.Error()))
		enc.StopTest(id)
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 4096)
		for {
			n, rerr := stdout.Read(buf)
			if n > 0 {
				// Pass-through of the child's own stdout: it is not
				// subunit, so it is written verbatim alongside the
				// encoded events rather than folded into them.
				_, _ = sw.Write(buf[:n])
			}
			if rerr != nil {
				if rerr != io.EOF {
					charmlog.Warn("reading child stdout", "err", rerr)
				}
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	if waitErr != nil {
		enc.AddError(id, subunit.NewRemoteError(waitErr.Error()))
	} else {
		enc.AddSuccess(id)
	}
	enc.StopTest(id)

	// Join the copy goroutine so it never outlives runClient, even
	// though its writes up to this point are already safely ordered
	// against the summary's by sw's lock.
	wg.Wait()
	return nil
}
