// Package toolrun invokes the external neuroimaging tools. Every tool is a black
// box called with file path arguments: the runner only builds the process,
// captures its output and reports how it exited.
package toolrun

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrMissingTool = errors.New("tool not found in PATH")
	ErrNoHandler   = errors.New("no handler registered for tool")
)

// Command is one invocation of an external tool.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Tool returns the base name of the binary, e.g. "tckedit" for /opt/mrtrix3/bin/tckedit.
func (c Command) Tool() string {
	return filepath.Base(c.Name)
}

// String renders the command line. Arguments with spaces are quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)

	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = fmt.Sprintf("%q", arg)
		}

		parts = append(parts, arg)
	}

	return strings.Join(parts, " ")
}

// Result is what a finished invocation produced.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	ExitCode int
}

// Runner runs commands. Run blocks until the process exits or ctx is done.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError is returned when a tool exits with a non-zero status.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// maxStderr bounds the stderr kept in an ExitError. MRtrix3 prints progress
// bars on stderr, the useful part is at the end.
const maxStderr = 2048

func trimStderr(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}

	return s
}
