// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"
)

// MockInvocation records a single CLI call made through the mock.
type MockInvocation struct {
	Name string
	Args []string
}

// MockCommandRecorder captures engine CLI invocations and replays canned
// results through the test binary instead of spawning real engines.
type MockCommandRecorder struct {
	Invocations []MockInvocation
	ExitCode    int
	Stdout      string
	Stderr      string
}

// CommandFunc returns an ExecCommandFunc that re-executes the test binary
// as a helper process configured with the recorder's canned output.
func (r *MockCommandRecorder) CommandFunc() ExecCommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		r.Invocations = append(r.Invocations, MockInvocation{Name: name, Args: args})
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"GO_HELPER_EXIT_CODE="+strconv.Itoa(r.ExitCode),
			"GO_HELPER_STDOUT="+r.Stdout,
			"GO_HELPER_STDERR="+r.Stderr,
		)
		return cmd
	}
}

// TestHelperProcess is not a real test. It is the subprocess side of
// MockCommandRecorder and only runs when re-executed by CommandFunc.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if out := os.Getenv("GO_HELPER_STDOUT"); out != "" {
		fmt.Fprint(os.Stdout, out)
	}
	if errOut := os.Getenv("GO_HELPER_STDERR"); errOut != "" {
		fmt.Fprint(os.Stderr, errOut)
	}
	code, _ := strconv.Atoi(os.Getenv("GO_HELPER_EXIT_CODE"))
	os.Exit(code)
}
