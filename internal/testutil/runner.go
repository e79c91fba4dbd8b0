package testutil

import (
	"context"
	"sync"

	"devpilot/internal/runner"
)

type cannedResult struct {
	output string
	err    error
}

// FakeRunner records every command and answers from canned results. Commands
// without a canned result go to Handler, or succeed with empty output.
type FakeRunner struct {
	mu      sync.Mutex
	calls   []runner.Cmd
	results map[string]cannedResult

	// Handler answers commands with no canned result when set
	Handler func(cmd runner.Cmd) (string, error)
}

// NewFakeRunner creates a runner where every command succeeds
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{results: make(map[string]cannedResult)}
}

// On sets the result for an exact command line such as "npm install --force"
func (f *FakeRunner) On(line, output string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[line] = cannedResult{output: output, err: err}
	return f
}

// Run implements runner.Runner
func (f *FakeRunner) Run(_ context.Context, cmd runner.Cmd) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	res, ok := f.results[cmd.Line()]
	handler := f.Handler
	f.mu.Unlock()

	if ok {
		return res.output, res.err
	}
	if handler != nil {
		return handler(cmd)
	}
	return "", nil
}

// Calls returns a copy of every recorded command
func (f *FakeRunner) Calls() []runner.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Cmd(nil), f.calls...)
}

// Lines returns the recorded command lines in call order
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// CallsIn returns the command lines run inside dir
func (f *FakeRunner) CallsIn(dir string) []string {
	var lines []string
	for _, c := range f.Calls() {
		if c.Dir == dir {
			lines = append(lines, c.Line())
		}
	}
	return lines
}
