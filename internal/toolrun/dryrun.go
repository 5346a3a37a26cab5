package toolrun

import (
	"context"
	"log/slog"

	"github.com/askiada/tractfilter/internal/logging"
)

// DryRunner logs commands instead of running them.
type DryRunner struct{}

// Run logs cmd and returns an empty result.
func (DryRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	logging.FromContext(ctx).InfoContext(ctx, "dry run",
		slog.String("tool", cmd.Tool()),
		slog.String("command", cmd.String()),
	)

	return &Result{}, nil
}

var _ Runner = DryRunner{}
