package toolrun

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

const waitDelay = 2 * time.Second

// ExecRunner runs commands as child processes. Cancelling the context kills
// the child.
type ExecRunner struct {
	env []string
}

// ExecOption configures an ExecRunner.
type ExecOption func(r *ExecRunner)

// WithEnv appends KEY=VALUE pairs to the environment of every child, e.g.
// ITK_GLOBAL_DEFAULT_NUMBER_OF_THREADS for ANTs.
func WithEnv(env ...string) ExecOption {
	return func(r *ExecRunner) {
		r.env = append(r.env, env...)
	}
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run starts cmd and waits for it.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	// children left behind by wrapper scripts must not keep Wait blocked
	proc.WaitDelay = waitDelay

	if len(r.env) > 0 {
		proc.Env = append(proc.Environ(), r.env...)
	}

	var stdout, stderr bytes.Buffer

	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	err := proc.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if proc.ProcessState != nil {
		res.ExitCode = proc.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Wrapf(ctxErr, "%s interrupted", cmd.Tool())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{
			Tool:   cmd.Tool(),
			Code:   exitErr.ExitCode(),
			Stderr: trimStderr(res.Stderr),
			Err:    err,
		}
	}

	return res, errors.Wrapf(err, "unable to start %s", cmd.Tool())
}

// LookPath checks that every binary can be found. All missing binaries are
// reported together.
func LookPath(names ...string) error {
	var missing []error

	for _, name := range names {
		_, err := exec.LookPath(name)
		if err != nil {
			missing = append(missing, errors.Wrap(ErrMissingTool, name))
		}
	}

	return stderrors.Join(missing...)
}

var _ Runner = (*ExecRunner)(nil)
