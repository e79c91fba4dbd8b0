// Package runner executes external tools (package managers, compilers, test
// runners) and captures their combined output.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"devpilot/internal/constants"
	"devpilot/internal/errors"
)

// Cmd describes one subprocess invocation
type Cmd struct {
	Dir  string
	Name string
	Args []string
	Env  []string
}

// New builds a Cmd running name with args inside dir
func New(dir, name string, args ...string) Cmd {
	return Cmd{Dir: dir, Name: name, Args: args}
}

// Line returns the command line without the directory
func (c Cmd) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// String includes the working directory when set
func (c Cmd) String() string {
	if c.Dir == "" {
		return c.Line()
	}
	return fmt.Sprintf("%s (in %s)", c.Line(), c.Dir)
}

// Runner runs a command to completion and returns its combined output
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (string, error)
}

// Exec runs commands with os/exec
type Exec struct{}

// NewExec returns the process-backed runner
func NewExec() *Exec {
	return &Exec{}
}

// Run executes cmd. A non-zero exit is returned as a COMMAND_FAILED error
// whose details carry the tail of the output.
func (e *Exec) Run(ctx context.Context, cmd Cmd) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	out, err := c.CombinedOutput()
	output := Truncate(string(out))
	if err != nil {
		pe := errors.CommandFailed(cmd.Line(), err)
		if tail := strings.TrimSpace(output); tail != "" {
			pe.Details = fmt.Sprintf("%s: %s", pe.Details, lastLine(tail))
		}
		return output, pe.WithContext("dir", cmd.Dir)
	}
	return output, nil
}

// Truncate keeps the last MaxOutputLength bytes of output, where errors show up
func Truncate(output string) string {
	if len(output) <= constants.MaxOutputLength {
		return output
	}
	return "..." + output[len(output)-constants.MaxOutputLength:]
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
