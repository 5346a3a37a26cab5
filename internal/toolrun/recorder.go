package toolrun

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Handler fakes one tool. It may write the files the real tool would produce.
type Handler func(ctx context.Context, cmd Command) (*Result, error)

// Recorder is an in-memory Runner for tests. It records every command and
// dispatches it to the handler registered for its tool.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	handlers map[string]Handler
	// Strict makes commands without a handler fail with ErrNoHandler.
	Strict bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{handlers: make(map[string]Handler)}
}

// On registers the handler of a tool, identified by its base name.
func (r *Recorder) On(tool string, handler Handler) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[tool] = handler

	return r
}

// Run records cmd and calls its handler.
func (r *Recorder) Run(ctx context.Context, cmd Command) (*Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	handler, ok := r.handlers[cmd.Tool()]
	strict := r.Strict
	r.mu.Unlock()

	if !ok {
		if strict {
			return nil, errors.Wrap(ErrNoHandler, cmd.Tool())
		}

		return &Result{}, nil
	}

	return handler(ctx, cmd)
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Command(nil), r.commands...)
}

// CommandsFor returns the recorded commands of one tool.
func (r *Recorder) CommandsFor(tool string) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := []Command{}

	for _, cmd := range r.commands {
		if cmd.Tool() == tool {
			res = append(res, cmd)
		}
	}

	return res
}

// Reset forgets recorded commands. Handlers are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = nil
}

var _ Runner = (*Recorder)(nil)
